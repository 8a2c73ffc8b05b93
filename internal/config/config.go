package config

import (
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	log "github.com/sirupsen/logrus"
)

type Application struct {
	Host      string    `koanf:"host"`
	Addr      string    `koanf:"addr"`
	Database  Database  `koanf:"db"`
	Timer     Timer     `koanf:"timer"`
	Insights  Insights  `koanf:"insights"`
	Telemetry Telemetry `koanf:"telemetry"`
}

type Database struct {
	Host   string `koanf:"host"`
	Port   int    `koanf:"port"`
	User   string `koanf:"user"`
	Pass   string `koanf:"pass"`
	Name   string `koanf:"name"`
	Schema string `koanf:"schema"`
}

// OnActivePolicy decides what starting a timer does while another one is running.
type OnActivePolicy string

const (
	StopPrevious OnActivePolicy = "stop"
	RejectStart  OnActivePolicy = "reject"
)

type Timer struct {
	OnActive OnActivePolicy `koanf:"onactive"`
}

type Insights struct {
	Enabled  bool   `koanf:"enabled"`
	Project  string `koanf:"project"`
	Location string `koanf:"location"`
	Model    string `koanf:"model"`
}

type Telemetry struct {
	Enabled  bool   `koanf:"enabled"`
	Endpoint string `koanf:"endpoint"`
	Insecure bool   `koanf:"insecure"`
}

func Defaults() Application {
	return Application{
		Host: "http://localhost:3000",
		Addr: ":8181",
		Database: Database{
			Host:   "localhost",
			Port:   5432,
			User:   "tally",
			Pass:   "",
			Name:   "tally",
			Schema: "tally",
		},
		Timer: Timer{
			OnActive: StopPrevious,
		},
		Insights: Insights{
			Location: "us-central1",
			Model:    "gemini-2.5-flash",
		},
	}
}

func Load(path string) (Application, error) {
	var k = koanf.New(".")

	err := k.Load(structs.Provider(Defaults(), "koanf"), nil)
	if err != nil {
		log.Errorf("error loading config from structs: %v", err)
		return Application{}, err
	}

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		if os.IsNotExist(err) {
			log.Infof("Config file not found at %s, using defaults and environment variables", path)
		} else {
			log.Errorf("error loading config from YAML: %v", err)
			return Application{}, err
		}
	} else {
		log.Infof("Loaded configuration from file: %s", path)
	}

	err = k.Load(env.Provider(".", env.Opt{
		Prefix: "TALLY_",
		TransformFunc: func(k, v string) (string, any) {
			k = strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(k, "TALLY_")), "_", ".")
			return k, v
		},
	}), nil)
	if err != nil {
		log.Errorf("error loading config from envs: %v", err)
		return Application{}, err
	}

	var app Application
	if err := k.Unmarshal("", &app); err != nil {
		return Application{}, err
	}

	switch app.Timer.OnActive {
	case StopPrevious, RejectStart:
	default:
		log.Warnf("Unknown timer.onactive policy %q, falling back to %q", app.Timer.OnActive, StopPrevious)
		app.Timer.OnActive = StopPrevious
	}

	return app, nil
}
