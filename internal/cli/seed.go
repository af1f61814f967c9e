package cli

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"patientsim/internal/db"
	"patientsim/internal/notes"
)

var seedSlug string

func init() {
	cmd := &cobra.Command{
		Use:   "seed-persona <path>",
		Short: "Create or update a persona from a clinical note",
		Long: "Parses a sectioned clinical note (plain text or PDF) into a persona, upserts it by slug " +
			"and writes its fields as JSON to $DATA_DIR/<slug>.json.",
		Args: cobra.ExactArgs(1),
		RunE: runSeed,
	}
	cmd.Flags().StringVar(&seedSlug, "slug", "", "Persona slug (default: derived from the file name)")
	RootCmd.AddCommand(cmd)
}

func runSeed(cmd *cobra.Command, args []string) error {
	persona, err := notes.Load(args[0], seedSlug)
	if err != nil {
		return err
	}

	database, err := openDatabase(cmd.Context())
	if err != nil {
		return err
	}
	defer database.Close()

	if err := db.NewRepository(database).UpsertPersona(cmd.Context(), persona); err != nil {
		return fmt.Errorf("save persona %q: %w", persona.Slug, err)
	}
	out, err := notes.Export(cfg.Sim.DataDir, persona)
	if err != nil {
		return err
	}
	logrus.WithFields(logrus.Fields{"slug": persona.Slug, "id": persona.ID, "json": out}).Info("persona seeded")
	return nil
}
