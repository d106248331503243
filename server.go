package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log"
	"log/syslog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"github.com/filmlog/filmlog-server/config"
	"github.com/filmlog/filmlog-server/database"
	"github.com/filmlog/filmlog-server/filmlog"
	"github.com/filmlog/filmlog-server/imageresize"
	"github.com/filmlog/filmlog-server/search"
	"github.com/filmlog/filmlog-server/session"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %s", err)
	}

	switch cfg.Logfile {
	case "syslog":
		logw, err := syslog.New(syslog.LOG_NOTICE, "filmlog")
		if err != nil {
			log.Fatalf("error opening syslog: %v", err)
		}
		log.SetOutput(logw)
	case "none":
		log.SetOutput(io.Discard)
	case "":
		fallthrough
	case "stdout":
	default:
		f, err := os.OpenFile(cfg.Logfile,
			os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0666)
		if err != nil {
			log.Fatalf("error opening file: %v", err)
		}
		defer f.Close()
		log.SetOutput(f)
	}
	log.SetFlags(0)

	repo, err := database.New(&database.Options{
		Filename: cfg.Dbfile,
	})
	if err != nil {
		log.Fatalf("database.New: %s", err)
	}

	searcher, err := search.New()
	if err != nil {
		log.Fatalf("search.New: %s", err)
	}

	resizer := imageresize.New(imageresize.Options{
		Cachedir: cfg.Cachedir,
		Quality:  cfg.ImageQualityPoster,
	})
	if cfg.Cachedir != "" {
		if err := os.MkdirAll(cfg.Cachedir, 0755); err != nil {
			log.Fatalf("cachedir: %s", err)
		}
		go resizer.SweepCache(time.Hour, 30*24*time.Hour)
	}

	sessions := session.New(session.Options{
		Secret: []byte(cfg.SessionSecret),
		Secure: cfg.Listen.TLS,
	})

	r := mux.NewRouter()

	app := filmlog.New(&filmlog.Options{
		Repo:         repo,
		Sessions:     sessions,
		Searcher:     searcher,
		Imageresizer: resizer,
		Posterdir:    cfg.Posterdir,
		SiteName:     cfg.SiteName,
	})
	app.RegisterHandlers(r)

	log.Printf("Rebuilding search index")
	if err := app.ReindexAll(context.Background()); err != nil {
		log.Fatalf("search reindex: %s", err)
	}

	server := HttpLog(r)
	addr := fmt.Sprintf(":%d", cfg.Listen.Port)

	if cfg.Listen.TLSCert != "" && cfg.Listen.TLSKey != "" {
		kpr, err := NewKeypairReloader(cfg.Listen.TLSCert, cfg.Listen.TLSKey)
		if err != nil {
			log.Fatalf("error loading keypair: %v", err)
		}

		srv := &http.Server{
			Addr:    addr,
			Handler: server,
			TLSConfig: &tls.Config{
				MinVersion:     tls.VersionTLS13,
				GetCertificate: kpr.GetCertificateFunc(),
			},
		}
		log.Printf("Serving HTTPS on %s", addr)
		log.Fatal(srv.ListenAndServeTLS("", ""))
	} else {
		log.Printf("Serving HTTP on %s", addr)
		log.Fatal(http.ListenAndServe(addr, server))
	}
}

type keypairReloader struct {
	certMu   sync.RWMutex
	cert     *tls.Certificate
	certPath string
	keyPath  string
}

// NewKeypairReloader creates a new keypair reloader that will reload the TLS certificate
// and key from the specified paths every 15 seconds. If the certificate cannot be loaded,
// it will log an error and keep the old certificate in use.
func NewKeypairReloader(certPath, keyPath string) (*keypairReloader, error) {
	result := &keypairReloader{
		certPath: certPath,
		keyPath:  keyPath,
	}
	cert, err := tls.LoadX509KeyPair(certPath, keyPath)
	if err != nil {
		return nil, err
	}
	result.cert = &cert

	go func() {
		for {
			time.Sleep(15 * time.Second)
			if err := result.maybeReload(); err != nil {
				log.Printf("Keeping old TLS certificate because the new one could not be loaded: %v", err)
			}
		}
	}()
	return result, nil
}

func (kpr *keypairReloader) GetCertificateFunc() func(*tls.ClientHelloInfo) (*tls.Certificate, error) {
	return func(clientHello *tls.ClientHelloInfo) (*tls.Certificate, error) {
		kpr.certMu.RLock()
		defer kpr.certMu.RUnlock()
		return kpr.cert, nil
	}
}

func (kpr *keypairReloader) maybeReload() error {
	newCert, err := tls.LoadX509KeyPair(kpr.certPath, kpr.keyPath)
	if err != nil {
		return err
	}
	kpr.certMu.Lock()
	defer kpr.certMu.Unlock()
	kpr.cert = &newCert
	return nil
}
