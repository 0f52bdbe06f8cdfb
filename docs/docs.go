//go:build docs

// Command docs generates the CLI reference under docs/ and renders it
// into README.md from README.md.tpl.
package main

import (
	"os"
	"path"
	"strings"

	"github.com/pkg/errors"
	log "github.com/rs/zerolog"
	"github.com/spf13/cobra/doc"

	"github.com/maxgio92/stackflow/internal/settings"
	"github.com/maxgio92/stackflow/pkg/cmd"
)

const (
	docsDir        = "docs"
	readmeTemplate = "README.md.tpl"
	readmeFile     = "README.md"
	templateMarker = "{{ .CLI_REFERENCE }}"
)

func main() {
	logger := log.New(log.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	if err := genReference(logger); err != nil {
		logger.Fatal().Err(err).Msg("failed to generate the CLI reference")
	}
	if err := renderReadme(path.Join(docsDir, settings.CmdName+".md")); err != nil {
		logger.Fatal().Err(err).Msg("failed to render the README")
	}
	logger.Info().Str("file", readmeFile).Msg("docs generated")
}

// genReference writes one markdown page per command. Links to the root
// page point at the README, the others stay under docs/.
func genReference(logger log.Logger) error {
	root := cmd.NewCommand(cmd.NewOptions(cmd.WithLogger(logger.Level(log.InfoLevel))))

	noFrontMatter := func(string) string { return "" }
	links := func(name string) string {
		if name == settings.CmdName+".md" {
			return readmeFile
		}
		return path.Join(docsDir, name)
	}

	return doc.GenMarkdownTreeCustom(root, docsDir, noFrontMatter, links)
}

// renderReadme replaces the template marker of the README template with
// the root command page.
func renderReadme(rootPage string) error {
	tpl, err := os.ReadFile(readmeTemplate)
	if err != nil {
		return errors.Wrap(err, "error reading README template")
	}
	reference, err := os.ReadFile(rootPage)
	if err != nil {
		return errors.Wrap(err, "error reading CLI reference")
	}
	if !strings.Contains(string(tpl), templateMarker) {
		return errors.Errorf("%s has no %s marker", readmeTemplate, templateMarker)
	}

	readme := strings.Replace(string(tpl), templateMarker, string(reference), 1)
	if err := os.WriteFile(readmeFile, []byte(readme), 0o644); err != nil {
		return errors.Wrap(err, "error writing README")
	}

	return nil
}
