package calllog

import (
	"context"
	"testing"
	"time"

	commsserver "github.com/nats-io/nats-server/v2/server"
	comms "github.com/nats-io/nats.go"

	"github.com/morezero/webf/pkg/commsutil"
	"github.com/morezero/webf/pkg/mson"
)

// startTestServer starts an in-process NATS server for testing.
func startTestServer(t *testing.T, port int) (*comms.Conn, func()) {
	t.Helper()

	opts := &commsserver.Options{
		Host:   "127.0.0.1",
		Port:   port,
		NoLog:  true,
		NoSigs: true,
	}

	ns, err := commsserver.NewServer(opts)
	if err != nil {
		t.Fatalf("calllog:comms_sink_integration_test - failed to create server: %v", err)
	}

	go ns.Start()
	if !ns.ReadyForConnections(10 * time.Second) {
		t.Fatal("calllog:comms_sink_integration_test - server failed to start")
	}

	nc, err := comms.Connect(ns.ClientURL(), comms.Timeout(5*time.Second))
	if err != nil {
		ns.Shutdown()
		t.Fatalf("calllog:comms_sink_integration_test - failed to connect: %v", err)
	}

	cleanup := func() {
		nc.Close()
		ns.Shutdown()
		ns.WaitForShutdown()
	}

	return nc, cleanup
}

func TestCommsSink_Log_GranularSubject(t *testing.T) {
	nc, cleanup := startTestServer(t, 14240)
	defer cleanup()

	sink := NewCommsSink(nc, nil)

	received := make(chan []byte, 1)
	sub, err := nc.Subscribe("webf.calls.func1", func(msg *comms.Msg) {
		received <- msg.Data
	})
	if err != nil {
		t.Fatalf("calllog:comms_sink_integration_test - failed to subscribe: %v", err)
	}
	defer sub.Unsubscribe()

	if err := sink.Log(context.Background(), testRecord()); err != nil {
		t.Fatalf("calllog:comms_sink_integration_test - Log failed: %v", err)
	}
	nc.Flush()

	select {
	case data := <-received:
		doc, err := commsutil.DecodeDocument(data)
		if err != nil {
			t.Fatalf("calllog:comms_sink_integration_test - decode failed: %v", err)
		}
		if v, _ := mson.Get(doc, "func"); v != "func1" {
			t.Errorf("calllog:comms_sink_integration_test - func = %v, want func1", v)
		}
		if v, _ := mson.Get(doc, "status"); v != int64(200) {
			t.Errorf("calllog:comms_sink_integration_test - status = %v, want 200", v)
		}
		if v, _ := mson.Get(doc, "stime"); v == nil {
			t.Error("calllog:comms_sink_integration_test - stime missing")
		} else if _, ok := v.(time.Time); !ok {
			t.Errorf("calllog:comms_sink_integration_test - stime is %T, want time.Time", v)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("calllog:comms_sink_integration_test - timeout waiting for granular record")
	}
}

func TestCommsSink_Log_CustomGlobalSubject(t *testing.T) {
	nc, cleanup := startTestServer(t, 14241)
	defer cleanup()

	sink := NewCommsSink(nc, &CommsSinkOpts{Subject: "audit.calls"})

	granularReceived := make(chan bool, 1)
	globalReceived := make(chan bool, 1)

	sub1, err := nc.Subscribe("audit.calls.orders.list", func(msg *comms.Msg) {
		granularReceived <- true
	})
	if err != nil {
		t.Fatalf("calllog:comms_sink_integration_test - subscribe granular failed: %v", err)
	}
	defer sub1.Unsubscribe()

	sub2, err := nc.Subscribe("audit.calls", func(msg *comms.Msg) {
		globalReceived <- true
	})
	if err != nil {
		t.Fatalf("calllog:comms_sink_integration_test - subscribe global failed: %v", err)
	}
	defer sub2.Unsubscribe()

	rec := testRecord()
	rec.Function = "orders/list"
	if err := sink.Log(context.Background(), rec); err != nil {
		t.Fatalf("calllog:comms_sink_integration_test - Log failed: %v", err)
	}
	nc.Flush()

	for _, ch := range []struct {
		name string
		ch   chan bool
	}{
		{"granular", granularReceived},
		{"global", globalReceived},
	} {
		select {
		case <-ch.ch:
		case <-time.After(5 * time.Second):
			t.Fatalf("calllog:comms_sink_integration_test - timeout waiting for %s record", ch.name)
		}
	}
}

func TestCommsSink_Log_UnroutedCallOnlyGlobal(t *testing.T) {
	nc, cleanup := startTestServer(t, 14242)
	defer cleanup()

	sink := NewCommsSink(nc, nil)

	all := make(chan string, 4)
	sub, err := nc.Subscribe("webf.calls.>", func(msg *comms.Msg) {
		all <- msg.Subject
	})
	if err != nil {
		t.Fatalf("calllog:comms_sink_integration_test - subscribe failed: %v", err)
	}
	defer sub.Unsubscribe()
	global := make(chan bool, 1)
	sub2, err := nc.Subscribe("webf.calls", func(msg *comms.Msg) {
		global <- true
	})
	if err != nil {
		t.Fatalf("calllog:comms_sink_integration_test - subscribe failed: %v", err)
	}
	defer sub2.Unsubscribe()

	rec := testRecord()
	rec.Function = ""
	rec.Status = 404
	if err := sink.Log(context.Background(), rec); err != nil {
		t.Fatalf("calllog:comms_sink_integration_test - Log failed: %v", err)
	}
	nc.Flush()

	select {
	case <-global:
	case <-time.After(5 * time.Second):
		t.Fatal("calllog:comms_sink_integration_test - timeout waiting for global record")
	}
	select {
	case subj := <-all:
		t.Errorf("calllog:comms_sink_integration_test - unexpected granular publish to %s", subj)
	case <-time.After(100 * time.Millisecond):
	}
}
