package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"scheduler-go/busapi"

	"github.com/godbus/dbus/v5"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Query the running daemon's control bus",
	Long:  `status connects to the system bus and reports the daemon's current CFS profile.`,
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return fmt.Errorf("connect to system bus: %w", err)
	}
	defer conn.Close()

	obj := conn.Object(busapi.BusName, busapi.ObjectPath)

	var profile string
	if err := obj.Call(busapi.InterfaceName+".CurrentCfsProfile", 0).Store(&profile); err != nil {
		return fmt.Errorf("query current profile: %w", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "BUS NAME\t%s\n", busapi.BusName)
	fmt.Fprintf(w, "OBJECT PATH\t%s\n", busapi.ObjectPath)
	fmt.Fprintf(w, "CURRENT PROFILE\t%s\n", profile)
	return w.Flush()
}
