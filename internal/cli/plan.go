package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"sealcheck.io/sealcheck/internal/plan"
)

// PlanValidation holds the validate subcommand's result.
type PlanValidation struct {
	Valid  bool     `json:"valid"`
	Plan   string   `json:"plan,omitempty"`
	Groups int      `json:"groups,omitempty"`
	Error  string   `json:"error,omitempty"`
	Idents []string `json:"identities,omitempty"`
}

// NewPlanCommand creates the plan command group.
func NewPlanCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Inspect and validate plan files",
	}
	cmd.AddCommand(newPlanValidateCommand(rootOpts))
	return cmd
}

func newPlanValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <plan.yaml>",
		Short: "Validate a plan file without running it",
		Long: `Validate a plan file's structure: group names, member lists, and
field spelling. Does not contact the platform or check identity assignments.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlanValidate(cmd, rootOpts, args[0])
		},
	}
}

func runPlanValidate(cmd *cobra.Command, rootOpts *RootOptions, path string) error {
	out := cmd.OutOrStdout()

	pl, err := plan.Load(path)
	if err != nil {
		if rootOpts.Format == "json" {
			_ = json.NewEncoder(out).Encode(PlanValidation{Valid: false, Error: err.Error()})
			return &ExitError{Code: 2}
		}
		return err
	}

	result := PlanValidation{
		Valid:  true,
		Plan:   pl.Name,
		Groups: len(pl.Groups),
		Idents: pl.Identities(),
	}
	if rootOpts.Format == "json" {
		return json.NewEncoder(out).Encode(result)
	}

	fmt.Fprintf(out, "plan %s: OK (%d groups, %d identities)\n",
		pl.Name, len(pl.Groups), len(result.Idents))
	return nil
}
