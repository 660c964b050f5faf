package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jask/relcards/internal/config"
	"github.com/jask/relcards/internal/relationship"
	"github.com/jask/relcards/internal/schema"
)

func newConfigCmd() *cobra.Command {
	var (
		cardFields []string
		field      string
		ownerID    string
		starIcon   string
	)
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Write the current settings to the config file",
		Long: `config writes the effective settings (config file, RELCARDS_ environment and flags)
back to the config file. Flags change which field is shown and how its cards look.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			flags := cmd.Flags()
			if flags.Changed("card-fields") {
				cfg.Relationship.CardFields = cardFields
			}
			if flags.Changed("field") {
				cfg.Relationship.Field = field
			}
			if flags.Changed("owner-id") {
				cfg.Relationship.OwnerID = ownerID
			}
			if flags.Changed("star-icon") {
				cfg.UI.StarIcon = starIcon
			}
			if err := checkDisplay(cfg); err != nil {
				return err
			}
			if err := config.Save(cfg); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", config.Path())
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&cardFields, "card-fields", nil, "fields shown on each card")
	cmd.Flags().StringVar(&field, "field", "", "relationship field of the owner list")
	cmd.Flags().StringVar(&ownerID, "owner-id", "", "owner record id (empty picks the first)")
	cmd.Flags().StringVar(&starIcon, "star-icon", "", "icon for filled stars")
	return cmd
}

// checkDisplay rejects settings the board could not mount.
func checkDisplay(cfg config.Config) error {
	rc := cfg.Relationship
	_, foreign, err := schema.Default().Relationship(rc.OwnerList, rc.Field)
	if err != nil {
		return err
	}
	if _, err := relationship.ResolveSelection(cfg.DisplayOptions(), foreign); err != nil {
		return fmt.Errorf("%w (fields: %s)", err, strings.Join(foreign.Paths(), ", "))
	}
	return nil
}
