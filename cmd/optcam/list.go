package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var listVerbose bool

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the cameras visible to the driver",
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		mgr := newManager(f, newMockDriver(f.Mock))
		cams, err := mgr.Discover()
		if err != nil {
			return err
		}
		if len(cams) == 0 {
			fmt.Println("no cameras found")
			return nil
		}

		fmt.Printf("📷 %d camera(s)\n", len(cams))
		for i, cam := range cams {
			if listVerbose {
				fmt.Printf("[%d]\n%s", i, cam.Describe())
				continue
			}
			printIdentity(i, cam)
		}
		return nil
	},
}

func init() {
	listCmd.Flags().BoolVarP(&listVerbose, "verbose", "v", false, "print full identity")
}
