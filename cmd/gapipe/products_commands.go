package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"gapipe/internal/gapipe"
	"gapipe/internal/repo"
)

func newProductsCommand(ctx *commandContext) *cobra.Command {
	productsCmd := &cobra.Command{
		Use:   "products",
		Short: "Discover and inspect pipeline products",
	}

	productsCmd.AddCommand(newProductsListCommand())
	productsCmd.AddCommand(newProductsFindCommand(ctx))
	productsCmd.AddCommand(newProductsLocateCommand(ctx))
	productsCmd.AddCommand(newProductsIdentityCommand(ctx))

	return productsCmd
}

// registerFilterFlags declares one repeatable flag per identity parameter so
// queries read as `--visit 1000-2000 --objId 2a`. Tokens are either a single
// value or an inclusive LOW-HIGH range.
func registerFilterFlags(cmd *cobra.Command) map[string]*[]string {
	flags := make(map[string]*[]string)
	registry, err := gapipe.NewRegistry()
	if err != nil {
		return flags
	}
	for _, name := range registry.ParamNames() {
		flags[name] = cmd.Flags().StringArray(name, nil,
			fmt.Sprintf("Filter on %s (value or LOW-HIGH range, repeatable)", name))
	}
	return flags
}

func queryFromFlags(flags map[string]*[]string) repo.Query {
	q := make(repo.Query)
	for name, tokens := range flags {
		if tokens != nil && len(*tokens) > 0 {
			q[name] = *tokens
		}
	}
	return q
}

func newProductsListCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "list",
		Short:       "List known product types",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, err := gapipe.NewRegistry()
			if err != nil {
				return err
			}
			rows := make([][]string, 0)
			for _, product := range registry.Products() {
				desc, err := registry.Lookup(product)
				if err != nil {
					return err
				}
				params := make([]string, 0, len(desc.Params))
				for _, p := range desc.Params {
					params = append(params, p.Name)
				}
				rows = append(rows, []string{product, strings.Join(params, ", ")})
			}
			writeRows(cmd.OutOrStdout(), []string{"PRODUCT", "PARAMETERS"}, rows, nil)
			return nil
		},
	}
}

func newProductsFindCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "find <product>",
		Short: "Find every product file matching the filters",
		Args:  cobra.ExactArgs(1),
	}
	flags := registerFilterFlags(cmd)
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		repository, err := ctx.repository()
		if err != nil {
			return err
		}
		product := args[0]
		matches, err := repository.Find(product, queryFromFlags(flags))
		if err != nil {
			return err
		}
		desc, err := repository.Registry().Lookup(product)
		if err != nil {
			return err
		}

		headers := []string{"PATH"}
		for _, p := range desc.Params {
			headers = append(headers, strings.ToUpper(p.Name))
		}
		rows := make([][]string, 0, len(matches))
		for _, match := range matches {
			row := []string{match.Path}
			for _, p := range desc.Params {
				if v, ok := match.Identity[p.Name]; ok {
					row = append(row, p.New().FormatValue(v))
				} else {
					row = append(row, "")
				}
			}
			rows = append(rows, row)
		}
		writeRows(cmd.OutOrStdout(), headers, rows, nil)
		if isTerminal(cmd.OutOrStdout()) {
			fmt.Fprintf(cmd.OutOrStdout(), "%d file(s)\n", len(matches))
		}
		return nil
	}
	return cmd
}

func newProductsLocateCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "locate <product>",
		Short: "Resolve the filters to exactly one product file",
		Args:  cobra.ExactArgs(1),
	}
	flags := registerFilterFlags(cmd)
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		repository, err := ctx.repository()
		if err != nil {
			return err
		}
		match, err := repository.Locate(args[0], queryFromFlags(flags))
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), match.Path)
		return nil
	}
	return cmd
}

func newProductsIdentityCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:         "identity <product> <path>",
		Aliases:     []string{"show"},
		Short:       "Parse the identity encoded in a product filename",
		Args:        cobra.ExactArgs(2),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, err := gapipe.NewRegistry()
			if err != nil {
				return err
			}
			repository := repo.NewRepository(registry, nil, nil)
			identity, _, err := repository.ParseIdentity(args[0], args[1], true)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), identity.String())
			return nil
		},
	}
}
