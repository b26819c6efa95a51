// Package i18n translates the UI and notification strings. The language is
// taken from KITCHENTIMERS_LANG, then from the system locale, and falls back
// to English.
package i18n

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/jeandeaual/go-locale"
)

// EnvLang forces the language when set.
const EnvLang = "KITCHENTIMERS_LANG"

var (
	mu   sync.RWMutex
	lang = "en"
)

var translations = map[string]map[string]string{
	"Timer %d": {
		"pt": "Timer %d",
		"es": "Temporizador %d",
		"ru": "Таймер %d",
	},
	"Timer finished": {
		"pt": "Timer concluído",
		"es": "Temporizador terminado",
		"ru": "Таймер завершён",
	},
	"%s is done": {
		"pt": "%s terminou",
		"es": "%s ha terminado",
		"ru": "%s готово",
	},
	"Start": {
		"pt": "Iniciar",
		"es": "Iniciar",
		"ru": "Старт",
	},
	"Pause": {
		"pt": "Pausar",
		"es": "Pausar",
		"ru": "Пауза",
	},
	"Resume": {
		"pt": "Retomar",
		"es": "Reanudar",
		"ru": "Продолжить",
	},
	"Reset": {
		"pt": "Resetar",
		"es": "Reiniciar",
		"ru": "Сброс",
	},
	"Stop alarm": {
		"pt": "Parar alarme",
		"es": "Detener alarma",
		"ru": "Выключить сигнал",
	},
	"Add timer": {
		"pt": "Adicionar timer",
		"es": "Añadir temporizador",
		"ru": "Добавить таймер",
	},
	"Remove": {
		"pt": "Remover",
		"es": "Eliminar",
		"ru": "Удалить",
	},
	"Name": {
		"pt": "Nome",
		"es": "Nombre",
		"ru": "Название",
	},
	"h": {
		"ru": "ч",
	},
	"m": {
		"ru": "м",
	},
	"s": {
		"ru": "с",
	},
	"Done!": {
		"pt": "Pronto!",
		"es": "¡Listo!",
		"ru": "Готово!",
	},
	"Close": {
		"pt": "Fechar",
		"es": "Cerrar",
		"ru": "Закрыть",
	},
}

// Init selects the language. A non-empty forced value wins over the
// environment and the system locale.
func Init(forced string) {
	SetLang(detect(forced))
}

func detect(forced string) string {
	if forced = strings.TrimSpace(forced); forced != "" {
		return normalize(forced)
	}
	if env := strings.TrimSpace(os.Getenv(EnvLang)); env != "" {
		slog.Debug("language forced by environment", "lang", env)
		return normalize(env)
	}

	userLocales, err := locale.GetLocales()
	if err != nil || len(userLocales) == 0 {
		slog.Debug("no user locale detected, defaulting to english", "err", err)
		return "en"
	}
	slog.Debug("detected user locale", "locale", userLocales[0])
	return normalize(userLocales[0])
}

func normalize(tag string) string {
	tag = strings.ToLower(tag)
	for _, l := range []string{"pt", "es", "ru"} {
		if strings.HasPrefix(tag, l) {
			return l
		}
	}
	return "en"
}

// SetLang sets the active language.
func SetLang(l string) {
	mu.Lock()
	lang = l
	mu.Unlock()
}

// GetLang returns the active language.
func GetLang() string {
	mu.RLock()
	defer mu.RUnlock()
	return lang
}

// T translates key, returning key itself when no translation exists.
func T(key string) string {
	mu.RLock()
	defer mu.RUnlock()
	if translated, ok := translations[key][lang]; ok {
		return translated
	}
	return key
}

// Tf translates a format string and applies args.
func Tf(key string, args ...any) string {
	return fmt.Sprintf(T(key), args...)
}
