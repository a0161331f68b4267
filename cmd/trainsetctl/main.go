// Command trainsetctl boots the microkernel and every process in the
// application/data-link/physical stack (spec.md §2's component table),
// wiring them together in this order: kernel and scheduler first, then
// the data-link outbound/inbound servers, the application layer and the
// time server, and last (only when an interactive console is available)
// the console output/input servers and the console command handler.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/ece4402/trainset/internal/app"
	"github.com/ece4402/trainset/internal/config"
	"github.com/ece4402/trainset/internal/datalink"
	"github.com/ece4402/trainset/internal/kernel"
	"github.com/ece4402/trainset/internal/metrics"
	"github.com/ece4402/trainset/internal/physical"
	"github.com/ece4402/trainset/internal/routing"
	"github.com/ece4402/trainset/internal/serial"
	"github.com/ece4402/trainset/internal/timeserver"
)

// Well-known mailboxes (original_source/AppLayerMessage.h and
// DataLinkMessage.h define a handful of fixed mailbox indices rather
// than binding ANY everywhere; kept here for the same reason: the
// console command handler and the app layer need to address each other
// without a discovery step).
const (
	mbApp         = 2
	mbDataLink    = 3
	mbTimeServer  = 4
	mbConsoleLine = 5
	mbConsoleOut  = 6
)

func main() {
	cfg, err := config.Parse(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, "trainsetctl:", err)
		os.Exit(2)
	}

	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	counters := metrics.NewCounters()
	go func() {
		if err := metrics.Serve(cfg.MetricsAddr); err != nil {
			log.Error("metrics server exited", "err", err)
		}
	}()

	transport, err := openTransport(cfg, log)
	if err != nil {
		log.Error("failed to open physical transport", "err", err)
		os.Exit(1)
	}
	defer transport.Close()

	k := kernel.New(log)
	k.SetCounters(counters)
	sch := kernel.NewScheduler(k)
	go sch.Run(cfg.TickInterval)
	defer sch.Stop()

	link := datalink.NewLink(sch, transport, cfg.RetransmitAfter, log)
	link.SetCounters(counters)

	table := routing.NewTable(cfg.SwitchCount)
	seedDemoRoute(table)

	appLayer := app.NewLayer(table, mbDataLink, log)
	appLayer.SetCounters(counters)

	if _, err := k.RegisterProcess(2, link.OutboundServer(mbDataLink)); err != nil {
		log.Error("register data-link outbound server", "err", err)
		os.Exit(1)
	}
	inboundPID, err := k.RegisterProcess(3, link.InboundServer(kernel.AnyMailbox, mbApp))
	if err != nil {
		log.Error("register data-link inbound server", "err", err)
		os.Exit(1)
	}
	if _, err := k.RegisterProcess(2, appLayer.Run(mbApp)); err != nil {
		log.Error("register application layer", "err", err)
		os.Exit(1)
	}
	if _, err := k.RegisterProcess(1, timeserver.New(sch, log).Run(mbTimeServer)); err != nil {
		log.Error("register time server", "err", err)
		os.Exit(1)
	}

	go feedPhysicalLayer(transport, link, inboundPID, log)

	console, err := serial.NewConsole()
	if err != nil {
		log.Warn("no interactive console available, manual switch override disabled", "err", err)
		select {}
	}
	defer console.Restore()

	consoleLink := serial.NewLink(sch, console, log)
	if _, err := k.RegisterProcess(1, consoleLink.OutputServer(mbConsoleOut)); err != nil {
		log.Error("register console output server", "err", err)
		os.Exit(1)
	}
	inPID, err := k.RegisterProcess(1, consoleLink.InputServer(kernel.AnyMailbox, mbConsoleLine))
	if err != nil {
		log.Error("register console input server", "err", err)
		os.Exit(1)
	}
	if _, err := k.RegisterProcess(1, consoleCommandHandler(appLayer, mbConsoleLine, mbConsoleOut)); err != nil {
		log.Error("register console command handler", "err", err)
		os.Exit(1)
	}

	go serial.ReadLoop(func(b byte) { consoleLink.ReceiveByte(b, inPID) })

	select {}
}

// openTransport builds the byte-level transport the data-link layer
// frames onto. spec.md's Non-goal excludes driver/baud configuration,
// so the serial transport only configures what internal/physical's
// SerialTransport exposes (device path and read timeout).
func openTransport(cfg config.Config, log *slog.Logger) (physical.Transport, error) {
	switch cfg.Transport {
	case config.TransportSerial:
		log.Info("opening serial transport", "device", cfg.SerialDevice)
		return physical.OpenSerial(cfg.SerialDevice, cfg.SerialReadTimeout)
	default:
		log.Info("using in-memory loopback transport (no hardware attached)")
		a, _ := physical.NewPipePair()
		return a, nil
	}
}

// feedPhysicalLayer is the host-side analogue of the original's UART
// receive ISR for the data-link wire: read raw bytes from transport,
// assemble STX...ETX frames, unmarshal them, and deposit them for the
// inbound data-link process to drain.
func feedPhysicalLayer(transport physical.Transport, link *datalink.Link, inboundPID kernel.PID, log *slog.Logger) {
	var reader physical.Reader
	buf := make([]byte, 256)
	for {
		n, err := transport.Read(buf)
		if err != nil {
			log.Error("physical transport read failed", "err", err)
			return
		}
		for i := 0; i < n; i++ {
			body, ok := reader.Feed(buf[i])
			if !ok {
				continue
			}
			f, ok := datalink.UnmarshalFrame(body)
			if !ok {
				log.Warn("dropped malformed data-link frame")
				continue
			}
			link.FeedFrame(f, inboundPID)
		}
	}
}

// seedDemoRoute installs a minimal routing policy so the application
// layer has something to look up; the routing table's actual entries
// are data, not part of this component's specified behavior (spec.md's
// Non-goal on "the contents of the routing table as a policy").
func seedDemoRoute(table *routing.Table) {
	table.Set(1, 10, routing.Entry{Dir: routing.Forward, SwitchIndex: 0, SwitchState: routing.Straight})
	table.Set(2, 10, routing.Entry{Dir: routing.Forward, SwitchIndex: routing.NoSwitch})
	table.Train(0).Destination = 10
	table.Train(0).Magnitude = 8
}

// consoleCommandHandler is the minimal terminal UI this repo wires the
// console link's assembled lines into: a manual switch-throw override
// ("SWITCH <idx> <0|1>"), the supplemented feature recovered from
// original_source/TrainRouting.c. The rest of the terminal UI is
// explicitly out of scope (spec.md's Non-goals).
func consoleCommandHandler(layer *app.Layer, mb, consoleOutMB int) func(*kernel.Proc) {
	return func(p *kernel.Proc) {
		bound := p.Bind(mb)
		buf := make([]byte, kernel.MsgMax)
		for {
			n, _, ok := p.Receive(bound, buf)
			if !ok {
				return
			}
			fields := strings.Fields(string(buf[:n]))
			if len(fields) != 3 || fields[0] != "SWITCH" {
				p.Send(consoleOutMB, bound, []byte("\r\nusage: SWITCH <idx> <0|1>\r\n"))
				continue
			}
			var idx, state int
			if _, err := fmt.Sscanf(fields[1], "%d", &idx); err != nil {
				continue
			}
			if _, err := fmt.Sscanf(fields[2], "%d", &state); err != nil {
				continue
			}
			layer.ThrowSwitch(p, bound, idx, routing.SwitchState(state))
			p.Send(consoleOutMB, bound, []byte(fmt.Sprintf("\r\nswitch %d set\r\n", idx)))
		}
	}
}
