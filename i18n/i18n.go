package i18n

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

//go:embed locales/*.json
var embedded embed.FS

// Locales returns the translations shipped with the binary.
func Locales() fs.FS {
	sub, err := fs.Sub(embedded, "locales")
	if err != nil {
		panic(err)
	}
	return sub
}

// Service manages internationalization.
type Service struct {
	logger      *slog.Logger
	catalog     catalog.Catalog
	supported   []language.Tag
	acceptRange language.Matcher
}

// NewService creates a new i18n service from the *.json files at the root
// of fsys. Each file maps message keys to translations and is named after
// its language tag.
func NewService(fsys fs.FS, logger *slog.Logger) (*Service, error) {
	// Use English as the fallback language.
	builder := catalog.NewBuilder(catalog.Fallback(language.English))

	supportedLangs := []language.Tag{language.English}

	files, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to read locales directory: %w", err)
	}

	loaded := 0
	for _, file := range files {
		if file.IsDir() || !strings.HasSuffix(file.Name(), ".json") {
			continue
		}
		langStr := strings.TrimSuffix(file.Name(), ".json")
		langTag, err := language.Parse(langStr)
		if err != nil {
			logger.Warn("failed to parse language tag from file name", "file", file.Name(), "error", err)
			continue
		}

		data, err := fs.ReadFile(fsys, file.Name())
		if err != nil {
			logger.Error("failed to read translation file", "file", file.Name(), "error", err)
			continue
		}

		translations := make(map[string]string)
		if err := json.Unmarshal(data, &translations); err != nil {
			logger.Error("failed to unmarshal translation file", "file", file.Name(), "error", err)
			continue
		}

		for key, value := range translations {
			if err := builder.SetString(langTag, key, value); err != nil {
				logger.Error("failed to set string for language", "lang", langTag, "key", key, "error", err)
			}
		}
		// Avoid re-adding English if en.json exists
		if langTag != language.English {
			supportedLangs = append(supportedLangs, langTag)
		}
		loaded++
		logger.Info("loaded translations", "language", langTag.String(), "file", file.Name())
	}

	if loaded == 0 {
		return nil, fmt.Errorf("no translation files found")
	}

	return &Service{
		logger:      logger,
		catalog:     builder,
		supported:   supportedLangs,
		acceptRange: language.NewMatcher(supportedLangs),
	}, nil
}

// Languages lists the languages with a translation file, English first.
func (s *Service) Languages() []string {
	out := make([]string, len(s.supported))
	for i, t := range s.supported {
		out[i] = t.String()
	}
	return out
}

// Match returns the supported language closest to an Accept-Language value
// or a stored language setting.
func (s *Service) Match(acceptLanguage string) language.Tag {
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		if err != nil {
			s.logger.Warn("failed to parse Accept-Language header, falling back to default", "header", acceptLanguage, "error", err)
		}
		return language.English
	}
	_, idx, _ := s.acceptRange.Match(tags...)
	return s.supported[idx]
}

// GetPrinter returns a message.Printer for the best matching language based on Accept-Language header.
func (s *Service) GetPrinter(acceptLanguage string) *message.Printer {
	return message.NewPrinter(s.Match(acceptLanguage), message.Catalog(s.catalog))
}

// Sprintf formats and translates a string using the best matching language.
func (s *Service) Sprintf(acceptLanguage, key string, args ...interface{}) string {
	printer := s.GetPrinter(acceptLanguage)
	return printer.Sprintf(key, args...)
}

// SprintfWithTag formats and translates a string using a specific language tag.
func (s *Service) SprintfWithTag(langTag language.Tag, key string, args ...interface{}) string {
	printer := message.NewPrinter(langTag, message.Catalog(s.catalog))
	return printer.Sprintf(key, args...)
}
