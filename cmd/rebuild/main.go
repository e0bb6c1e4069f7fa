// rebuild regenera el libro de movimientos a partir de los documentos de origen.
//
// Uso:
//
//	go run ./cmd/rebuild                          reconstruye todo en una transacción
//	go run ./cmd/rebuild -product=p1,p2           reconstruye solo esos productos
//	go run ./cmd/rebuild -async                   encola un trabajo por producto (requiere REDIS_ADDR)
//	go run ./cmd/rebuild -product=p1,p2 -continue-on-error
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/jhoicas/stock-ledger/internal/bootstrap"
	"github.com/jhoicas/stock-ledger/pkg/config"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

func main() {
	products := flag.String("product", "", "IDs de producto separados por coma (vacío = todos)")
	async := flag.Bool("async", false, "encolar un trabajo por producto en lugar de reconstruir en línea")
	continueOnError := flag.Bool("continue-on-error", false, "seguir con el siguiente producto si uno falla")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "cargar configuración: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel, Service: cfg.App.Name + "-rebuild"})

	if *async && !cfg.Redis.Enabled() {
		fmt.Fprintln(os.Stderr, "-async requiere REDIS_ADDR: la cola en memoria no sobrevive al proceso")
		os.Exit(2)
	}

	ctx := context.Background()
	c, err := bootstrap.Build(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("inicializar servicios")
	}
	defer c.Close()

	ids := splitIDs(*products)

	if *async {
		n, err := c.Rebuild.Schedule(ctx, ids, cfg.Rebuild.Stagger)
		if err != nil {
			log.Error().Err(err).Int("enqueued", n).Msg("no se pudieron encolar las reconstrucciones")
			c.Close()
			os.Exit(1)
		}
		fmt.Printf("%d trabajos encolados\n", n)
		return
	}

	if len(ids) == 0 {
		res, err := c.Rebuild.Rebuild(ctx, "")
		if err != nil {
			c.Close()
			os.Exit(1)
		}
		fmt.Printf("libro reconstruido: %d series en %s\n", res.Series, res.Duration)
		return
	}

	failed := 0
	for _, id := range ids {
		res, err := c.Rebuild.Rebuild(ctx, id)
		if err != nil {
			failed++
			if !*continueOnError {
				break
			}
			continue
		}
		fmt.Printf("%s: %d series en %s\n", id, res.Series, res.Duration)
	}
	if failed > 0 {
		fmt.Fprintf(os.Stderr, "%d productos fallaron\n", failed)
		c.Close()
		os.Exit(1)
	}
}

func splitIDs(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
