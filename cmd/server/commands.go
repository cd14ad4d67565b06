package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/iliyamo/patient-records/internal/config"
	"github.com/iliyamo/patient-records/internal/model"
	"github.com/iliyamo/patient-records/internal/repository"
)

// options holds flag overrides shared by every subcommand.
type options struct {
	storePath string
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "patientd",
		Short:         "Patient records HTTP service backed by a JSON file",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.storePath, "store", "", "path of the patient JSON file (overrides STORE_PATH)")

	root.AddCommand(newServeCmd(opts), newInitCmd(opts), newBMICmd())
	return root
}

// loadConfig reads the environment and applies flag overrides.
func (o *options) loadConfig() config.Config {
	cfg := config.Load()
	if o.storePath != "" {
		cfg.StorePath = o.storePath
	}
	return cfg
}

func newInitCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create an empty patient store if none exists",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := opts.loadConfig()
			created, err := repository.NewFileStore(cfg.StorePath).Init()
			if err != nil {
				return err
			}
			if created {
				fmt.Fprintf(cmd.OutOrStdout(), "created %s\n", cfg.StorePath)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "%s already exists\n", cfg.StorePath)
			}
			return nil
		},
	}
}

func newBMICmd() *cobra.Command {
	var height, weight float64
	cmd := &cobra.Command{
		Use:   "bmi",
		Short: "Print the BMI and verdict for a height (m) and weight (kg)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if height <= 0 || weight <= 0 {
				return fmt.Errorf("height and weight must be greater than 0")
			}
			bmi := model.BMI(height, weight)
			fmt.Fprintf(cmd.OutOrStdout(), "bmi: %.2f\nverdict: %s\n", bmi, model.VerdictFor(bmi))
			return nil
		},
	}
	cmd.Flags().Float64Var(&height, "height", 0, "height in metres")
	cmd.Flags().Float64Var(&weight, "weight", 0, "weight in kilograms")
	_ = cmd.MarkFlagRequired("height")
	_ = cmd.MarkFlagRequired("weight")
	return cmd
}
