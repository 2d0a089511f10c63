package config_test

import (
	"fmt"
	"log"

	"github.com/robert-malhotra/burn-severity/internal/config"
)

func ExampleLoad() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("Server: %s\n", cfg.Server.Address())
	fmt.Printf("Provider: %s\n", cfg.Provider.Type)
	fmt.Printf("Workers: %d\n", cfg.Acquire.Workers)
	fmt.Printf("Raster: %s\n", cfg.Output.Raster)

	// Output:
	// Server: 0.0.0.0:8080
	// Provider: CA
	// Workers: 5
	// Raster: data/output.tiff
}
