package main

import (
	"github.com/spf13/cobra"
)

func main() {
	var root = &cobra.Command{Use: "billtracker"}

	root.AddCommand(serveCMD(), migrateCMD(), refreshCMD())
	_ = root.Execute()
}
