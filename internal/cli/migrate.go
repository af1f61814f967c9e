package cli

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func init() {
	RootCmd.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Create the database tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			database, err := openDatabase(cmd.Context())
			if err != nil {
				return err
			}
			defer database.Close()
			logrus.WithField("dialect", database.Dialect).Info("schema applied")
			return nil
		},
	})
}
