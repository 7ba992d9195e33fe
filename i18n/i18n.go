// Package i18n translates the demo window strings. The language comes from
// ASYNCFYNE_LANG or, failing that, the system locale.
package i18n

import (
	"os"
	"strings"
	"sync/atomic"

	"github.com/jeandeaual/go-locale"
	"go.uber.org/zap"
)

// LangEnv overrides locale detection.
const LangEnv = "ASYNCFYNE_LANG"

var lang atomic.Value

var supported = []string{"pt", "es", "ru"}

var translations = map[string]map[string]string{
	"Click me": {
		"pt": "Clique aqui",
		"es": "Haz clic",
		"ru": "Нажми меня",
	},
	"Working…": {
		"pt": "Processando…",
		"es": "Procesando…",
		"ru": "Выполняется…",
	},
	"Done": {
		"pt": "Pronto",
		"es": "Listo",
		"ru": "Готово",
	},
	"Background work finished.": {
		"pt": "Trabalho em segundo plano concluído.",
		"es": "Trabajo en segundo plano terminado.",
		"ru": "Фоновая работа завершена.",
	},
	"runs": {
		"pt": "execuções",
		"es": "ejecuciones",
		"ru": "запуски",
	},
	"overruns": {
		"pt": "atrasos",
		"es": "retrasos",
		"ru": "перерасходы",
	},
	"failures": {
		"pt": "falhas",
		"es": "fallos",
		"ru": "сбои",
	},
	"No update tasks": {
		"pt": "Nenhuma tarefa de atualização",
		"es": "Sin tareas de actualización",
		"ru": "Нет задач обновления",
	},
	"Close": {
		"pt": "Fechar",
		"es": "Cerrar",
		"ru": "Закрыть",
	},
}

func init() {
	lang.Store("en")
}

// Detect picks the language from LangEnv or the system locale and makes it
// current. It returns the chosen language.
func Detect(logger *zap.Logger) string {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("i18n")

	forced := strings.TrimSpace(os.Getenv(LangEnv))
	if forced != "" {
		logger.Info("language forced", zap.String("env", LangEnv), zap.String("lang", forced))
		SetLang(forced)
		return forced
	}

	userLocales, err := locale.GetLocales()
	if err != nil {
		logger.Warn("could not get user locale, defaulting to english", zap.Error(err))
	}
	chosen := match(userLocales)
	logger.Info("language set", zap.Strings("locales", userLocales), zap.String("lang", chosen))
	SetLang(chosen)
	return chosen
}

// match returns the supported language of the first locale, or "en".
func match(locales []string) string {
	if len(locales) == 0 {
		return "en"
	}
	for _, l := range supported {
		if strings.HasPrefix(strings.ToLower(locales[0]), l) {
			return l
		}
	}
	return "en"
}

// SetLang makes l the current language.
func SetLang(l string) {
	lang.Store(l)
}

// GetLang returns the current language.
func GetLang() string {
	return lang.Load().(string)
}

// T returns key translated to the current language, or key itself.
func T(key string) string {
	if translated, ok := translations[key][GetLang()]; ok {
		return translated
	}
	return key
}
