package conditions

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/julianstephens/routinely/internal/cli"
	"github.com/julianstephens/routinely/internal/models"
	"github.com/julianstephens/routinely/internal/validation"
)

// Document is the YAML layout used by condition import and export.
type Document struct {
	Conditions []models.Condition `yaml:"conditions"`
}

type ConditionExportCmd struct {
	Routine string `arg:"" optional:"" help:"Only export conditions of this routine (ID or name)."`
	Output  string `help:"Write to this file instead of stdout." short:"o" type:"path"`
}

func (c *ConditionExportCmd) Run(ctx *cli.Context) error {
	var doc Document
	var err error
	if c.Routine != "" {
		r, rerr := ctx.ResolveRoutine(c.Routine)
		if rerr != nil {
			return rerr
		}
		doc.Conditions, err = ctx.Store.ListConditions(ctx.Context(), r.ID)
	} else {
		doc.Conditions, err = ctx.Store.ListAllConditions(ctx.Context())
	}
	if err != nil {
		return fmt.Errorf("failed to get conditions: %w", err)
	}
	if doc.Conditions == nil {
		doc.Conditions = []models.Condition{}
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode conditions: %w", err)
	}
	if err := enc.Close(); err != nil {
		return err
	}

	if c.Output == "" {
		_, err := ctx.Stdout().Write(buf.Bytes())
		return err
	}
	if err := os.WriteFile(c.Output, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", c.Output, err)
	}
	ctx.Printf("Exported %d conditions to %s\n", len(doc.Conditions), c.Output)
	return nil
}

type ConditionImportCmd struct {
	File    string `arg:"" help:"YAML file to import." type:"existingfile"`
	Routine string `help:"Attach every imported condition to this routine (ID or name)."`
	DryRun  bool   `help:"Validate only; do not save." name:"dry-run"`
}

func (c *ConditionImportCmd) Run(ctx *cli.Context) error {
	data, err := os.ReadFile(c.File)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", c.File, err)
	}
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to parse %s: %w", c.File, err)
	}
	if len(doc.Conditions) == 0 {
		ctx.Println("No conditions to import")
		return nil
	}

	routineID := ""
	if c.Routine != "" {
		r, err := ctx.ResolveRoutine(c.Routine)
		if err != nil {
			return err
		}
		routineID = r.ID
	}
	now, err := ctx.Now()
	if err != nil {
		return err
	}

	for i := range doc.Conditions {
		cond := &doc.Conditions[i]
		if routineID != "" {
			cond.RoutineID = routineID
		}
		if cond.ID == "" {
			cond.ID = cli.NewID()
		}
		if cond.Checks == nil {
			cond.Checks = []models.ConditionCheck{}
		}
		for j := range cond.Checks {
			if cond.Checks[j].ID == "" {
				cond.Checks[j].ID = cli.NewID()
			}
			cond.Checks[j].ConditionID = cond.ID
		}
		cond.CreatedAt, cond.UpdatedAt = now, now
	}

	refs, err := ctx.Refs()
	if err != nil {
		return err
	}
	result := validation.New().ValidateConditions(doc.Conditions, refs)
	for _, cond := range doc.Conditions {
		if !refs.Routines[cond.RoutineID] {
			result.Conflicts = append(result.Conflicts, validation.Conflict{
				Type:        validation.ConflictDanglingTarget,
				Description: fmt.Sprintf("condition %q: routine %s does not exist", cond.Label(), cond.RoutineID),
				ConditionID: cond.ID,
			})
		}
	}
	blocking := result.Without(validation.ConflictNoChecks)
	if err := blocking.Err(); err != nil {
		return err
	}

	if c.DryRun {
		ctx.Printf("%d conditions are valid\n", len(doc.Conditions))
		return nil
	}
	for _, cond := range doc.Conditions {
		if err := ctx.Store.SaveCondition(ctx.Context(), cond); err != nil {
			return fmt.Errorf("failed to save condition %s: %w", cond.Label(), err)
		}
	}
	ctx.Printf("Imported %d conditions\n", len(doc.Conditions))
	return nil
}
