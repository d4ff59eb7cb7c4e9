// Command roomschema writes the JSON schema for room model files.
package main

import (
	"flag"
	"log"
	"os"

	"roomnav/server/internal/roommodel"
)

func main() {
	out := flag.String("out", "", "write the schema to this file instead of stdout")
	flag.Parse()

	data, err := roommodel.SchemaJSON()
	if err != nil {
		log.Fatalf("roomschema: %v", err)
	}
	if *out == "" {
		os.Stdout.Write(data)
		return
	}
	if err := os.WriteFile(*out, data, 0o644); err != nil {
		log.Fatalf("roomschema: %v", err)
	}
}
