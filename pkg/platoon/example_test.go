package platoon_test

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/bft-labs/platoon/pkg/platoon"
)

// ExampleNew demonstrates how to embed platoon in your application.
func ExampleNew() {
	// A stand-in for the telemetry service.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/init" {
			fmt.Fprint(w, `{"session_id":"example-session","flags":{"new_shop":{"payload":{"discount":10}}}}`)
		}
	}))
	defer srv.Close()

	client, err := platoon.New(platoon.Config{
		AccessToken: "your-access-token",
		UserID:      "player-42",
		BaseURL:     srv.URL,
	})
	if err != nil {
		fmt.Printf("failed to create client: %v\n", err)
		return
	}

	ready := make(chan struct{})
	client.EnableFlagRetrieval()
	client.StartSession(func() { close(ready) })

	select {
	case <-ready:
	case <-time.After(5 * time.Second):
		fmt.Println("session not ready")
		return
	}

	fmt.Println("session:", client.SessionID())
	fmt.Println("new_shop active:", client.IsFlagActive("new_shop"))

	client.AddEvent("level_complete", map[string]any{"level": 3})

	if err := client.Close(); err != nil {
		fmt.Printf("close: %v\n", err)
	}
	fmt.Println("ready after close:", client.IsReady())

	// Output:
	// session: example-session
	// new_shop active: true
	// ready after close: false
}

// Example_withEventHandler demonstrates how to receive client events.
func Example_withEventHandler() {
	handler := &myEventHandler{}

	client, err := platoon.New(platoon.Config{
		AccessToken: "your-access-token",
		UserID:      "player-42",
		Disabled:    true,
	}, platoon.WithEventHandler(handler))
	if err != nil {
		fmt.Printf("failed to create client: %v\n", err)
		return
	}

	client.Activate(true)
	_ = client.Close()

	// Output:
	// activation: true (host)
	// activation: false (closed)
}

// myEventHandler implements platoon.EventHandler for event notifications.
type myEventHandler struct {
	platoon.BaseEventHandler // Embed for no-op defaults
}

func (h *myEventHandler) OnActivationChange(event platoon.ActivationChangeEvent) {
	fmt.Printf("activation: %v (%s)\n", event.Active, event.Reason)
}
