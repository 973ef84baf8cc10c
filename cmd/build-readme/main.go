package main

import (
	"bytes"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/keshon/saga-bot/internal/command"
	"github.com/keshon/saga-bot/internal/commands"
	"github.com/keshon/saga-bot/internal/content"
	"github.com/keshon/saga-bot/internal/docs"
)

func main() {
	catalog, err := content.Default()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load content")
	}

	var descs []command.Descriptor
	for _, c := range commands.All(commands.Deps{Catalog: catalog}) {
		descs = append(descs, c.Register())
	}

	tmpl, err := os.ReadFile("README.md.tmpl")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read template")
	}

	var out bytes.Buffer
	if err := docs.Render(&out, string(tmpl), descs, "!"); err != nil {
		log.Fatal().Err(err).Msg("Failed to render README")
	}
	if err := os.WriteFile("README.md", out.Bytes(), 0644); err != nil {
		log.Fatal().Err(err).Msg("Failed to write README")
	}
	log.Info().Int("commands", len(descs)).Msg("README.md updated with current commands")
}
