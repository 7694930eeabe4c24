package beepsound

import (
	"strings"

	"github.com/jeandeaual/go-locale"
	"go.uber.org/zap"
)

type Config struct {
	// Dir holds one sub directory per language with <id>.ogg files.
	Dir      string `envconfig:"JOUST_SOUND_DIR" default:"sounds"`
	Language string `envconfig:"JOUST_LANG"`
}

var supported = []string{"en", "de", "ru"}

// language returns the configured language, or the first supported one among the system locales.
func (c Config) language(logger *zap.SugaredLogger) string {
	if lang := strings.TrimSpace(c.Language); lang != "" {
		return lang
	}

	locales, err := locale.GetLocales()
	if err != nil {
		logger.Warnf("detect locale: %v, using english", err)
		return "en"
	}

	for _, l := range locales {
		for _, s := range supported {
			if strings.HasPrefix(strings.ToLower(l), s) {
				logger.Infof("detected locale %s", l)
				return s
			}
		}
	}

	return "en"
}
