package cmd

import (
	"fmt"

	"github.com/illarion/lockpass/internal/core"
	"github.com/illarion/lockpass/internal/generate"
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Print a random password",
		Long: fmt.Sprintf(`Print a random password containing upper and lower case letters, digits
and symbols. Length must be between %d and %d.`, generate.MinLength, generate.MaxLength),
		Args: cobra.NoArgs,
		RunE: runGenerate,
	}
	cmd.Flags().IntP("length", "l", generate.DefaultLength, "Password length")

	RootCmd.AddCommand(cmd)
}

func runGenerate(cmd *cobra.Command, _ []string) error {
	n, _ := cmd.Flags().GetInt("length")
	pw, err := generate.Generate(n)
	if err != nil {
		return core.E("generate", core.Validation, err)
	}
	fmt.Println(pw)
	return nil
}
