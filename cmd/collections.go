package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"mergectx/internal/git"
	"mergectx/internal/store"
)

var collectionsCmd = &cobra.Command{
	Use:   "collections",
	Short: "List indexed snapshot collections",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		root, err := git.Root(ctx, flagRepo)
		if err != nil {
			return err
		}
		cfg, err := loadConfig(root)
		if err != nil {
			return err
		}
		st, err := store.Open(cfg.Store.Path)
		if err != nil {
			return err
		}
		defer st.Close()

		infos, err := st.Collections(ctx)
		if err != nil {
			return err
		}
		if len(infos) == 0 {
			fmt.Println("No collections indexed yet.")
			return nil
		}
		for _, ci := range infos {
			fmt.Printf("%s  %d records  model=%s dim=%d  created=%s\n",
				ci.Name, ci.Records, ci.Model, ci.Dim, ci.CreatedAt)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(collectionsCmd)
}
