// Command server listens on the acoustic modem stack and logs every
// message it receives, until interrupted. It mirrors the original
// AudioServer example's receive loop, generalized to run
// indefinitely rather than for a single message.
package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/tadnir/audionet/internal/audio"
	"github.com/tadnir/audionet/internal/config"
	"github.com/tadnir/audionet/internal/monitor"
	"github.com/tadnir/audionet/internal/socket"
)

func main() {
	var (
		layerName   = flag.StringP("layer", "l", "transport", "protocol layer to listen on: physical, link, or transport")
		monitorAddr = flag.String("monitor-addr", "", "if set, serve protocol-stack events over ws://<addr>/events")
		timeoutSec  = flag.IntP("timeout", "t", 0, "receive timeout in seconds (0 keeps the configuration default)")
	)
	flag.Parse()

	layer, err := socket.ParseLayer(*layerName)
	if err != nil {
		log.Fatalf("%v", err)
	}

	if err := audio.Init(); err != nil {
		log.Fatalf("initialize audio backend: %v", err)
	}
	defer audio.Terminate()

	cfg := config.Default()
	if *timeoutSec > 0 {
		cfg.RecvTimeout = time.Duration(*timeoutSec) * time.Second
	}
	backend := audio.New(cfg)

	sock, err := socket.New(cfg, backend, layer)
	if err != nil {
		log.Fatalf("build socket: %v", err)
	}
	defer sock.Close()

	if *monitorAddr != "" {
		hub := monitor.NewHub(256)
		sock.SetSink(hub)
		srv := monitor.NewServer(*monitorAddr, hub)
		go func() {
			if err := srv.Start(); err != nil {
				log.Printf("monitor server stopped: %v", err)
			}
		}()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	done := make(chan struct{})
	go func() {
		<-sigCh
		fmt.Println("\nshutting down...")
		close(done)
	}()

	log.Printf("listening on %s layer", layer)
	buf := make([]byte, cfg.LinkMTU())
	for {
		select {
		case <-done:
			return
		default:
		}

		n, err := sock.Recv(buf)
		if err != nil {
			log.Printf("recv: %v", err)
			continue
		}
		log.Printf("got: <%s> (%d bytes)", buf[:n], n)
	}
}
