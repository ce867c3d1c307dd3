// Command client sends a single message over the acoustic modem stack
// and exits. It mirrors the behaviour of the original AudioClient
// example: one positional message argument, sent once.
package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/gordonklaus/portaudio"
	flag "github.com/spf13/pflag"

	"github.com/tadnir/audionet/internal/audio"
	"github.com/tadnir/audionet/internal/config"
	"github.com/tadnir/audionet/internal/monitor"
	"github.com/tadnir/audionet/internal/socket"
)

func main() {
	var (
		deviceHint  = flag.StringP("addr", "a", "", "audio device hint (informational; the default system device is always used)")
		layerName   = flag.StringP("layer", "l", "transport", "protocol layer to send over: physical, link, or transport")
		monitorAddr = flag.String("monitor-addr", "", "if set, serve protocol-stack events over ws://<addr>/events")
		listDevices = flag.Bool("list-devices", false, "list audio devices and exit")
	)
	flag.Parse()

	if *listDevices {
		if err := audio.Init(); err != nil {
			log.Fatalf("initialize audio backend: %v", err)
		}
		defer audio.Terminate()
		printDevices()
		return
	}

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: client [flags] <message>")
		flag.PrintDefaults()
		os.Exit(1)
	}
	message := flag.Arg(0)

	layer, err := socket.ParseLayer(*layerName)
	if err != nil {
		log.Fatalf("%v", err)
	}
	if *deviceHint != "" {
		log.Printf("audio device hint %q noted (default system device is used)", *deviceHint)
	}

	if err := audio.Init(); err != nil {
		log.Fatalf("initialize audio backend: %v", err)
	}
	defer audio.Terminate()

	cfg := config.Default()
	backend := audio.New(cfg)

	sock, err := socket.New(cfg, backend, layer)
	if err != nil {
		log.Fatalf("build socket: %v", err)
	}
	defer sock.Close()

	if *monitorAddr != "" {
		hub := monitor.NewHub(64)
		sock.SetSink(hub)
		srv := monitor.NewServer(*monitorAddr, hub)
		go func() {
			if err := srv.Start(); err != nil {
				log.Printf("monitor server stopped: %v", err)
			}
		}()
		// Give one slow client a moment to connect before the first
		// send fires, so `--monitor-addr` demos don't race the
		// opening preamble.
		time.Sleep(200 * time.Millisecond)
	}

	log.Printf("sending %d bytes over %s layer", len(message), layer)
	if err := sock.Send([]byte(message)); err != nil {
		log.Fatalf("send: %v", err)
	}
	log.Printf("finished sending")
}

// printDevices lists the audio devices portaudio can see, marking
// whichever one playback/capture would actually use. The acoustic
// modem stack always opens the default duplex device (see
// internal/audio.Backend), so this is diagnostic only: it explains
// what "default" resolves to on the operator's machine, not a device
// picker.
func printDevices() {
	devices, err := portaudio.Devices()
	if err != nil {
		log.Fatalf("list devices: %v", err)
	}
	defaultIn, err := portaudio.DefaultInputDevice()
	if err != nil {
		log.Fatalf("default input device: %v", err)
	}
	defaultOut, err := portaudio.DefaultOutputDevice()
	if err != nil {
		log.Fatalf("default output device: %v", err)
	}

	fmt.Println("Audio devices:")
	for i, d := range devices {
		defaultStr := ""
		if d.Name == defaultIn.Name || d.Name == defaultOut.Name {
			defaultStr = " [DEFAULT]"
		}
		fmt.Printf("  %d: %s (in:%d out:%d rate:%.0f)%s\n",
			i, d.Name, d.MaxInputChannels, d.MaxOutputChannels,
			d.DefaultSampleRate, defaultStr)
	}
}
