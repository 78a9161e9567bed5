package controllers

import (
	"net/http"
	"sort"

	"github.com/angelmondragon/grovetrace/api/responses"
	"github.com/angelmondragon/grovetrace/pkg/config"
	"github.com/angelmondragon/grovetrace/pkg/db"
	pkgerrors "github.com/angelmondragon/grovetrace/pkg/errors"
	"github.com/angelmondragon/grovetrace/pkg/logger"
)

const envHeader = "X-Grovetrace-Env"

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings every dependency. Nil entries are treated as not configured.
func HealthReady(cfg *config.Config, logg *logger.Logger, deps map[string]db.Pinger) http.HandlerFunc {
	names := make([]string, 0, len(deps))
	for name, dep := range deps {
		if dep != nil {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)

		checks := make(map[string]string, len(names))
		for _, name := range names {
			if err := deps[name].Ping(r.Context()); err != nil {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.Wrap(pkgerrors.CodeDependency, err, name+" unavailable").
						WithDetails(map[string]any{"dependency": name}))
				return
			}
			checks[name] = "ok"
		}

		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": checks})
	}
}
