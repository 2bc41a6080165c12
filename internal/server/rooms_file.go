// Package server supports pre-creating rooms at startup from a YAML file, so
// a deployment can offer a fixed set of rooms before anyone joins them.
package server

import (
	"fmt"
	"log"
	"os"

	"gopkg.in/yaml.v3"
)

// RoomYAML represents one room in the rooms config file.
type RoomYAML struct {
	Name string `yaml:"name"`
}

// RoomsConfig is the top-level YAML config for pre-created rooms.
type RoomsConfig struct {
	Rooms []RoomYAML `yaml:"rooms"`
}

// LoadRoomsFile reads a rooms YAML file and registers its rooms. Nothing is
// ever written back; this is boot-time configuration, not persistence.
func LoadRoomsFile(path string, registry *Registry) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read rooms config: %w", err)
	}
	return ImportRooms(data, registry)
}

// ImportRooms parses YAML data and registers each named room that does not
// already exist. Entries without a name are skipped with a log line.
func ImportRooms(data []byte, registry *Registry) error {
	var cfg RoomsConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return fmt.Errorf("parse rooms config: %w", err)
	}

	created := 0
	for _, room := range cfg.Rooms {
		if room.Name == "" {
			log.Printf("Skipping rooms config entry without a name")
			continue
		}
		if registry.GetRoom(room.Name) != nil {
			continue
		}
		registry.CreateRoom(room.Name)
		created++
	}

	log.Printf("Imported %d rooms from config", created)
	return nil
}
