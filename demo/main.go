// Command demo wires a client and a server tcp.Connection together
// in-process and drives them through a handshake, a short data transfer,
// and a clean close, logging progress and exposing each connection's
// accessors as Prometheus gauges over /metrics. It never touches a
// socket or a wire: segment serialization and the network stack that
// would carry these segments between machines are out of scope here;
// the two connections simply hand Segment values to each other directly.
package main

import (
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/YukunJ/Sponge-TCP-Protocol/internal/netmetrics"
	"github.com/YukunJ/Sponge-TCP-Protocol/tcp"
)

const tickInterval = 10 * time.Millisecond

// pump drains from's outbound queue and hands every segment to to,
// logging each hop the way a real adapter's receive loop would.
func pump(log *slog.Logger, from, to *tcp.Connection, label string) {
	for {
		seg, ok := from.Outbound()
		if !ok {
			return
		}
		log.Debug("segment delivered", "hop", label, "syn", seg.Syn(), "ack", seg.Ack(), "fin", seg.Fin(), "rst", seg.Rst(), "payload_len", len(seg.Payload))
		to.SegmentReceived(&seg)
	}
}

func main() {
	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	collector := netmetrics.NewCollector("sponge_tcp", []string{"role"}, prometheus.Labels{"app": "demo"})
	prometheus.MustRegister(collector)

	http.Handle("/metrics", promhttp.Handler())
	go func() {
		if err := http.ListenAndServe(":9090", nil); err != nil {
			log.Error("metrics server stopped", "err", err)
		}
	}()

	client, err := tcp.NewConnection(tcp.DefaultConfig())
	if err != nil {
		log.Error("construct client connection", "err", err)
		os.Exit(1)
	}
	server, err := tcp.NewConnection(tcp.DefaultConfig())
	if err != nil {
		log.Error("construct server connection", "err", err)
		os.Exit(1)
	}

	collector.Add(client, "client")
	collector.Add(server, "server")

	client.Connect()
	pump(log, client, server, "client->server")
	pump(log, server, client, "server->client")

	message := []byte("hello from the sponge endpoint demo")
	client.Write(message)
	pump(log, client, server, "client->server")
	pump(log, server, client, "server->client")

	client.EndInputStream()
	pump(log, client, server, "client->server")
	pump(log, server, client, "server->client")

	server.EndInputStream()
	pump(log, server, client, "server->client")
	pump(log, client, server, "client->server")

	for i := 0; (client.Active() || server.Active()) && i < 2000; i++ {
		client.Tick(uint64(tickInterval.Milliseconds()))
		server.Tick(uint64(tickInterval.Milliseconds()))
		pump(log, client, server, "client->server")
		pump(log, server, client, "server->client")
		time.Sleep(tickInterval)
	}

	got := server.InboundStream().Read(len(message))
	log.Info("transfer complete", "server_received", string(got), "client_active", client.Active(), "server_active", server.Active())
}
