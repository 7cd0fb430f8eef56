package server

import (
	"fmt"
	"log"
	"os"

	"github.com/goccy/go-yaml"
	"github.com/n9te9/fedquery-gateway/gateway"
)

// defaultGatewayConfigPath is where Run expects to find its settings.
const defaultGatewayConfigPath = "gateway.yaml"

// Init scaffolds a starter gateway.yaml in the current directory. It refuses
// to overwrite an existing file.
func Init() {
	if _, err := os.Stat(defaultGatewayConfigPath); err == nil {
		log.Fatalf("%s already exists", defaultGatewayConfigPath)
	}

	settings := gateway.GatewayOption{
		Endpoint:        "/graphql",
		ServiceName:     "federation-gateway",
		Port:            4000,
		TimeoutDuration: "5s",
		Services: []gateway.GatewayService{
			{
				Name:        "example",
				Host:        "http://localhost:4001",
				SchemaFiles: []string{"schema/example.graphql"},
			},
		},
	}

	b, err := yaml.Marshal(settings)
	if err != nil {
		log.Fatalf("failed to marshal default gateway settings: %v", err)
	}

	if err := os.WriteFile(defaultGatewayConfigPath, b, 0o644); err != nil {
		log.Fatalf("failed to write %s: %v", defaultGatewayConfigPath, err)
	}

	fmt.Printf("wrote %s\n", defaultGatewayConfigPath)
}
