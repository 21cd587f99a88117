// Generates the JSON schema embedded in pkg/config for startup verification
// of config files. Run it after changing Config and commit the result:
//
//	go run ./cmd/schema pkg/config/schema.json
package main

import (
	"encoding/json"
	"log"
	"os"

	"github.com/invopop/jsonschema"

	"github.com/wikiflow/wikiflow/pkg/config"
)

func main() {
	schema := jsonschema.Reflect(&config.Config{})

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		log.Fatalf("failed to marshal schema: %v", err)
	}

	out := "schema.json"
	if len(os.Args) > 1 {
		out = os.Args[1]
	}
	if err := os.WriteFile(out, data, 0o600); err != nil { //nolint:gosec // schema file is not sensitive
		log.Fatalf("failed to write %s: %v", out, err)
	}
	log.Printf("config schema written to %s", out)
}
