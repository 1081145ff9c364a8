package thing

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/denisbrodbeck/machineid"

	"github.com/ramonhpr/zephyr-knot-sdk/pkg/comm"
	"github.com/ramonhpr/zephyr-knot-sdk/pkg/knot/proxy"
	"github.com/ramonhpr/zephyr-knot-sdk/pkg/storage"
)

// Config provides common options to setup a Thing.
type Config struct {
	// Name is announced at registration and names the MQTT topics.
	Name string
	// URL specifies the transport, e.g.
	// mqtt://host:port/topic-prefix, tcp://host:port or ws://host:port/path.
	URL string
	// DBPath is the credential database.
	DBPath string
	// EventsFile is an optional YAML description of data point events.
	EventsFile string
	// DeviceID is announced at registration. Zero picks a random id.
	DeviceID uint64
	// Capacity is the number of data point slots.
	Capacity int
}

var defaultConfig = Config{
	Name:     "thing",
	URL:      "mqtt://localhost:1883/knot",
	DBPath:   "knot.db",
	DeviceID: MachineDeviceID(),
	Capacity: proxy.DefaultCapacity,
}

func init() {
	if val := os.Getenv("KNOT_NAME"); val != "" {
		defaultConfig.Name = val
	}
	if val := os.Getenv("KNOT_URL"); val != "" {
		defaultConfig.URL = val
	}
	if val := os.Getenv("KNOT_DB"); val != "" {
		defaultConfig.DBPath = val
	}
	if val := os.Getenv("KNOT_EVENTS"); val != "" {
		defaultConfig.EventsFile = val
	}
}

// SetupFlags sets up command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.Name, "knot-name", defaultConfig.Name, "Thing name.")
	flag.StringVar(&defaultConfig.URL, "knot-url", defaultConfig.URL, "Gateway URL.")
	flag.StringVar(&defaultConfig.DBPath, "knot-db", defaultConfig.DBPath, "Credential database path.")
	flag.StringVar(&defaultConfig.EventsFile, "knot-events", defaultConfig.EventsFile, "YAML file describing data point events.")
	flag.Uint64Var(&defaultConfig.DeviceID, "knot-device-id", defaultConfig.DeviceID, "Device ID announced at registration.")
	flag.IntVar(&defaultConfig.Capacity, "knot-capacity", defaultConfig.Capacity, "Number of data point slots.")
}

// Default gets the default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// MachineDeviceID derives a device id from the machine id. It returns zero
// when the machine id is unavailable.
func MachineDeviceID() uint64 {
	id, err := machineid.ProtectedID("knot")
	if err != nil || len(id) < 16 {
		return 0
	}
	n, err := strconv.ParseUint(id[:16], 16, 64)
	if err != nil {
		return 0
	}
	return n
}

// NewThing opens the credential database and the transport and creates a
// Thing using current config.
func (c *Config) NewThing(ctx context.Context) (*Thing, error) {
	store, err := storage.Open(c.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", c.DBPath, err)
	}
	rw, err := comm.Open(ctx, c.URL, c.Name)
	if err != nil {
		store.Close()
		return nil, err
	}
	return c.NewThingWith(rw, store), nil
}

// MustNewThing creates a Thing and fails on error.
func (c *Config) MustNewThing(ctx context.Context) *Thing {
	t, err := c.NewThing(ctx)
	if err != nil {
		log.Fatalln(err)
	}
	return t
}
