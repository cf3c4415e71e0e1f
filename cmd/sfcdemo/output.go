package main

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorgonia/sparse"
	"github.com/gorilla/websocket"
)

type info struct {
	Step    int     `json:"step"`
	Name    string  `json:"name"`
	Winners []int   `json:"winners"`
	Churn   float32 `json:"churn"`
}

// Encoder is a structure that encodes a meta state according to the sparse.OutputEncoder
// interface. The chunk winners of every step are sent as JSON to the websocket clients.
type Encoder struct {
	info chan []byte
}

var upgrader = websocket.Upgrader{} // use default options

func (enc *Encoder) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Print("upgrade:", err)
		return
	}
	defer c.Close()
	for {
		var b []byte
		select {
		case b = <-enc.info:
		case <-r.Context().Done():
			return
		}
		if err = c.WriteMessage(websocket.TextMessage, b); err != nil {
			log.Println("write:", err)
			return
		}
	}
}

// NewEncoder creates a websocket encoder that buffers up to n messages.
func NewEncoder(n int) *Encoder {
	return &Encoder{
		info: make(chan []byte, n),
	}
}

// Encode a meta state. If the buffer is full the state is dropped.
func (enc *Encoder) Encode(ms sparse.MetaState) error {
	b, err := json.Marshal(info{
		Step:    ms.Step,
		Name:    ms.Name,
		Winners: ms.WinnerUnits(),
		Churn:   ms.Churn,
	})
	if err != nil {
		return err
	}
	select {
	case enc.info <- b:
	default:
	}
	return nil
}

// Flush ...
func (enc *Encoder) Flush() error { return nil }

// multi fans a meta state out to several output encoders.
type multi []sparse.OutputEncoder

func (m multi) Encode(ms sparse.MetaState) error {
	for _, enc := range m {
		if err := enc.Encode(ms); err != nil {
			return err
		}
	}
	return nil
}

func (m multi) Flush() error {
	for _, enc := range m {
		if err := enc.Flush(); err != nil {
			return err
		}
	}
	return nil
}
