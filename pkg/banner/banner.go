package banner

import (
	"fmt"

	"ingestd/pkg/config"
)

const banner = `
██╗███╗   ██╗ ██████╗ ███████╗███████╗████████╗██████╗
██║████╗  ██║██╔════╝ ██╔════╝██╔════╝╚══██╔══╝██╔══██╗
██║██╔██╗ ██║██║  ███╗█████╗  ███████╗   ██║   ██║  ██║
██║██║╚██╗██║██║   ██║██╔══╝  ╚════██║   ██║   ██║  ██║
██║██║ ╚████║╚██████╔╝███████╗███████║   ██║   ██████╔╝
╚═╝╚═╝  ╚═══╝ ╚═════╝ ╚══════╝╚══════╝   ╚═╝   ╚═════╝
`

// Print prints the startup banner with the effective config and build info.
func Print(cfg *config.Config, source, version string) {
	fmt.Print(banner)
	fmt.Println("== Config =====================================================")
	fmt.Printf("Listen:     %s\n", cfg.Addr())
	fmt.Printf("Max batch:  %d ids\n", cfg.Scheduler.MaxBatch)
	fmt.Printf("Rate limit: 1 batch / %s\n", cfg.Scheduler.RateLimit.Duration())
	if version != "" {
		fmt.Printf("Version:    %s\n", version)
	}
	if source != "" {
		fmt.Printf("Config:     %s\n", source)
	}
	fmt.Println("\n== Endpoints ==================================================")
	fmt.Println("POST /ingest      - Admit ids with a priority (JSON: ids, priority)")
	fmt.Println("GET  /status/{id} - Ingestion status with per-batch detail")
	fmt.Println("\n== Examples ===================================================")
	fmt.Printf("curl -X POST 'http://localhost:%d/ingest' -d '{\"ids\":[1,2,3,4,5],\"priority\":\"HIGH\"}'\n", cfg.Server.Port)
	fmt.Printf("curl 'http://localhost:%d/status/<ingestion_id>'\n", cfg.Server.Port)
}
