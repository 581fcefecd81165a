package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/zgxtoolkit/zgxctl/internal/devices"
	"github.com/zgxtoolkit/zgxctl/internal/discovery"
	"github.com/zgxtoolkit/zgxctl/internal/netenum"
	"github.com/zgxtoolkit/zgxctl/internal/setup"
	"github.com/zgxtoolkit/zgxctl/internal/telemetry"
)

// Command flags
var (
	scanTimeout   int
	watchInterval int
	deviceName    string
	deviceHost    string
	devicePort    int
	deviceUser    string
	instanceName  string
	sshUser       string
	sshKeyPath    string
)

func init() {
	scanCmd.Flags().IntVar(&scanTimeout, "timeout", 0, "Scan timeout in seconds (default from preferences)")

	devicesAddCmd.Flags().StringVar(&deviceName, "name", "", "Display name")
	devicesAddCmd.Flags().StringVar(&deviceHost, "host", "", "IP address or hostname")
	devicesAddCmd.Flags().IntVar(&devicePort, "port", 22, "SSH port")
	devicesAddCmd.Flags().StringVar(&deviceUser, "user", "", "SSH username")
	devicesAddCmd.Flags().StringVar(&instanceName, "instance-name", "", "DNS-SD instance name (enables background rediscovery)")
	_ = devicesAddCmd.MarkFlagRequired("name")
	_ = devicesAddCmd.MarkFlagRequired("host")
	devicesCmd.AddCommand(devicesListCmd, devicesAddCmd, devicesRemoveCmd)

	setupCmd.Flags().StringVar(&sshUser, "user", "", "SSH username (overrides stored username)")
	setupCmd.Flags().StringVar(&sshKeyPath, "key", "", "Path to an SSH private key")

	installCmd.Flags().StringVar(&sshUser, "user", "", "SSH username (overrides stored username)")
	installCmd.Flags().StringVar(&sshKeyPath, "key", "", "Path to an SSH private key")

	watchCmd.Flags().IntVar(&watchInterval, "interval", 0, "Rediscovery interval in minutes (default from preferences)")

	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(devicesCmd)
	rootCmd.AddCommand(setupCmd)
	rootCmd.AddCommand(appsCmd)
	rootCmd.AddCommand(installCmd)
	rootCmd.AddCommand(watchCmd)
}

func newDiscoveryService() *discovery.Service {
	return discovery.NewService(netenum.New(), discovery.ZeroconfFactory{}, telemetry.LogSink{})
}

func openStore() (*devices.Store, error) {
	path, err := devices.DefaultPath()
	if err != nil {
		return nil, fmt.Errorf("failed to locate device store: %w", err)
	}
	store, err := devices.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open device store: %w", err)
	}
	return store, nil
}

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan the local network for ZGX devices",
	Long: `Scan for ZGX devices using mDNS/DNS-SD discovery.

Browses the generic SSH advertisement and the vendor device advertisement on
every active network interface and lists the devices found.`,
	Example: `  # Scan with the default timeout
  zgxctl scan

  # Longer scan for slow networks
  zgxctl scan --timeout 30`,
	RunE: runScan,
}

func runScan(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}

	timeout := time.Duration(scanTimeout) * time.Second
	if scanTimeout <= 0 {
		timeout = time.Duration(store.Preferences().ScanTimeoutSeconds) * time.Second
	}

	fmt.Printf("Scanning for ZGX devices (timeout: %s)...\n\n", timeout)

	found := newDiscoveryService().DiscoverDevices(timeout)
	if len(found) == 0 {
		fmt.Println("No devices found.")
		fmt.Println("\nTroubleshooting:")
		fmt.Println("  - Ensure the device is powered on and connected to this network")
		fmt.Println("  - Check that mDNS (UDP 5353) is not blocked by a firewall")
		fmt.Println("  - Try increasing --timeout for slower networks")
		return nil
	}

	fmt.Printf("Found %d device(s):\n\n", len(found))
	for i, d := range found {
		fmt.Printf("%d. %s\n", i+1, d.Name)
		fmt.Printf("   Hostname: %s\n", d.Hostname)
		if len(d.Addresses) > 0 {
			fmt.Printf("   Address:  %s:%d\n", d.Addresses[0], d.Port)
		}
		fmt.Println()
	}

	fmt.Println("Use 'zgxctl devices add' to register a device")
	fmt.Println("Use 'zgxctl setup <id>' to set up a registered device")
	return nil
}

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "Manage registered devices",
}

var devicesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered devices",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}

		all := store.GetAll()
		if len(all) == 0 {
			fmt.Println("No devices registered. Use 'zgxctl scan' and 'zgxctl devices add'.")
			return nil
		}

		for _, d := range all {
			status := "not set up"
			if d.IsSetup {
				status = "ready"
			}
			fmt.Printf("%s  %-20s %s:%d  [%s]\n", d.ID, d.Name, d.Host, d.Port, status)
			if d.DNSInstanceName != "" {
				fmt.Printf("%18s instance: %s\n", "", d.DNSInstanceName)
			}
		}
		return nil
	},
}

var devicesAddCmd = &cobra.Command{
	Use:     "add",
	Short:   "Register a device",
	Example: `  zgxctl devices add --name "Lab ZGX" --host 10.0.0.5 --instance-name "ZGX Device 1"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}

		added, err := store.Add(devices.Device{
			Name:            deviceName,
			Host:            deviceHost,
			Port:            devicePort,
			Username:        deviceUser,
			DNSInstanceName: instanceName,
		})
		if err != nil {
			return err
		}
		fmt.Printf("Registered %s (%s)\n", added.Name, added.ID)
		return nil
	},
}

var devicesRemoveCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Remove a registered device",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		if err := store.Remove(args[0]); err != nil {
			return err
		}
		fmt.Println("Device removed.")
		return nil
	},
}

var setupCmd = &cobra.Command{
	Use:   "setup <id>",
	Short: "Verify SSH connectivity and mark a device as set up",
	Long: `Connect to a registered device over SSH, verify command execution, and
mark the device as set up. Set-up devices with a recorded DNS-SD instance
name participate in background rediscovery.`,
	Args: cobra.ExactArgs(1),
	RunE: runSetup,
}

func runSetup(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	device, ok := store.Get(args[0])
	if !ok {
		return fmt.Errorf("device %q not found", args[0])
	}

	runner, user, err := dialDevice(device)
	if err != nil {
		return err
	}
	defer runner.Close()

	if err := runner.TestConnection(); err != nil {
		return fmt.Errorf("connection test failed: %w", err)
	}

	isSetup := true
	now := time.Now()
	patch := devices.Patch{IsSetup: &isSetup, LastSeenAt: &now}
	if user != device.Username {
		patch.Username = &user
	}
	if err := store.Update(device.ID, patch); err != nil {
		return err
	}

	fmt.Printf("%s is set up and ready.\n", device.Name)
	if device.DNSInstanceName == "" {
		fmt.Println("Note: no DNS-SD instance name recorded; background rediscovery will skip this device.")
	}
	return nil
}

var appsCmd = &cobra.Command{
	Use:   "apps",
	Short: "List installable applications",
	Run: func(cmd *cobra.Command, args []string) {
		for _, app := range setup.Catalog() {
			fmt.Printf("%-12s %s\n", app.ID, app.Name)
			fmt.Printf("%-12s %s\n", "", app.Description)
		}
	},
}

var installCmd = &cobra.Command{
	Use:     "install <device-id> <app-id>",
	Short:   "Install an application on a device",
	Example: `  zgxctl install 1a2b3c4d5e6f7a8b ollama`,
	Args:    cobra.ExactArgs(2),
	RunE:    runInstall,
}

func runInstall(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	device, ok := store.Get(args[0])
	if !ok {
		return fmt.Errorf("device %q not found", args[0])
	}
	app, ok := setup.FindApp(args[1])
	if !ok {
		return fmt.Errorf("unknown app %q (see 'zgxctl apps')", args[1])
	}

	runner, _, err := dialDevice(device)
	if err != nil {
		return err
	}
	defer runner.Close()

	fmt.Printf("Installing %s on %s...\n", app.Name, device.Name)
	if err := setup.Install(runner, app); err != nil {
		return err
	}
	fmt.Printf("%s installed.\n", app.Name)
	return nil
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Keep stored device addresses current",
	Long: `Run the background rediscovery loop until interrupted.

At each interval, devices that completed setup and have a recorded DNS-SD
instance name are looked up on the network; a device's stored address is
rewritten when it no longer matches what the device advertises.`,
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}

	interval := time.Duration(watchInterval) * time.Minute
	if watchInterval <= 0 {
		interval = time.Duration(store.Preferences().UpdateIntervalMinutes) * time.Minute
	}

	svc := devices.NewService(store, newDiscoveryService(), telemetry.LogSink{})
	svc.StartBackgroundUpdater(interval)
	defer svc.StopBackgroundUpdater()

	fmt.Printf("Watching devices (interval: %s). Press Ctrl-C to stop.\n", interval)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
	fmt.Println("\nStopping.")
	return nil
}

// dialDevice connects to a stored device, prompting for a password when no
// key is given. Returns the runner and the username that was used.
func dialDevice(device devices.Device) (*setup.Runner, string, error) {
	user := device.Username
	if sshUser != "" {
		user = sshUser
	}
	if user == "" {
		return nil, "", fmt.Errorf("no SSH username: set one with --user or 'zgxctl devices add --user'")
	}

	cfg := setup.Config{
		Host:           device.Host,
		Port:           device.Port,
		User:           user,
		PrivateKeyPath: sshKeyPath,
	}
	if cfg.PrivateKeyPath == "" {
		fmt.Printf("Password for %s@%s: ", user, device.Host)
		password, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Println()
		if err != nil {
			return nil, "", fmt.Errorf("failed to read password: %w", err)
		}
		cfg.Password = string(password)
	}

	runner, err := setup.Dial(cfg)
	if err != nil {
		return nil, "", err
	}
	return runner, user, nil
}
