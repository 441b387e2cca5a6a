package banner

import (
	"fmt"

	"courier/pkg/config"
)

const banner = `
 ██████╗ ██████╗ ██╗   ██╗██████╗ ██╗███████╗██████╗
██╔════╝██╔═══██╗██║   ██║██╔══██╗██║██╔════╝██╔══██╗
██║     ██║   ██║██║   ██║██████╔╝██║█████╗  ██████╔╝
██║     ██║   ██║██║   ██║██╔══██╗██║██╔══╝  ██╔══██╗
╚██████╗╚██████╔╝╚██████╔╝██║  ██║██║███████╗██║  ██║
 ╚═════╝ ╚═════╝  ╚═════╝ ╚═╝  ╚═╝╚═╝╚══════╝╚═╝  ╚═╝
`

// Print writes the startup banner with the effective runtime settings and
// a short production checklist.
func Print(eff config.Effective, version string) {
	addr := eff.Addr
	if addr == "" && eff.Config != nil {
		addr = eff.Config.Addr()
	}
	dbPath := eff.DBPath
	if dbPath == "" && eff.Config != nil {
		dbPath = eff.Config.Server.DBPath
	}
	src := eff.Source
	if src == "" {
		src = "flags"
	}

	fmt.Print(banner)
	fmt.Println("== Config =====================================================")
	fmt.Printf("Listen:   %s\n", addr)
	fmt.Printf("DB Path:  %s\n", dbPath)
	if version != "" {
		fmt.Printf("Version:  %s\n", version)
	}
	fmt.Printf("Config: %s\n", src)

	fmt.Println("\n== Endpoints ==================================================")
	fmt.Println("GET  /v1/ws                        - live channel (join, send_message, mark_as_read, typing)")
	fmt.Println("GET  /v1/threads                   - inbox summaries for the authenticated user")
	fmt.Println("GET  /v1/threads/{id}/messages     - thread history (marks the thread read)")
	fmt.Println("POST /v1/threads/{id}/read         - explicit read receipt")
	fmt.Println("POST /v1/messages                  - synchronous send for offline clients")
	fmt.Println("GET  /v1/messages/{id}             - fetch one message by id")

	fmt.Println("\n== Production? =================================================")
	be, fe := 0, 0
	if eff.Config != nil {
		be = len(eff.Config.Security.APIKeys.Backend)
		fe = len(eff.Config.Security.APIKeys.Frontend)
	}
	if be > 0 {
		fmt.Printf("- Backend API keys: OK (%d)\n", be)
	} else {
		fmt.Println("- Backend API keys: MISSING (required for backend services)")
	}
	if fe > 0 {
		fmt.Printf("- Frontend API keys: OK (%d)\n", fe)
	} else {
		fmt.Println("- Frontend API keys: MISSING (required for client access)")
	}

	tlsOK := eff.Config != nil && eff.Config.Server.TLS.CertFile != "" && eff.Config.Server.TLS.KeyFile != ""
	if tlsOK {
		fmt.Println("- TLS: configured")
	} else {
		fmt.Println("- TLS: unconfigured")
	}

	if dbPath != "" {
		fmt.Printf("- DB Path: %s\n", dbPath)
	} else {
		fmt.Println("- DB Path: not set (use --db or COURIER_SERVER_DB_PATH)")
	}

	if eff.Config != nil {
		workers := eff.Config.Pipeline.Workers
		capacity := eff.Config.Pipeline.Queue.Capacity
		if workers <= 0 {
			workers = 4
		}
		if capacity <= 0 {
			capacity = 4096
		}
		fmt.Printf("- Persist pipeline: %d workers, queue capacity %d\n", workers, capacity)
	}

	fmt.Println("\n== Logs: =================================================")
}
