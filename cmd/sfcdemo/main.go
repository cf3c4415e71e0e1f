package main

import (
	"flag"
	"fmt"
	"io/ioutil"
	"log"
	"math/rand"
	"net/http"
	"os"
	"time"

	"github.com/gorgonia/sparse"
	"github.com/gorgonia/sparse/chunk"
	"github.com/gorgonia/sparse/compute"
	"github.com/gorgonia/sparse/encoding/gif"
	"github.com/gorgonia/sparse/encoding/mjpeg"
	"github.com/gorgonia/sparse/internal/signal"

	_ "net/http/pprof"
)

var (
	steps     = flag.Int("steps", 500, "number of steps to run")
	inputSize = flag.Int("input", 16, "width and height of the input")
	hidden    = flag.Int("hidden", 16, "width and height of the hidden layer")
	chunkSize = flag.Int("chunk", 4, "width and height of a chunk")
	radius    = flag.Int("radius", 4, "receptive field radius")
	samples   = flag.Int("samples", 2, "depth of the input history")
	workers   = flag.Int("workers", 0, "number of workers of the compute queue. 0 uses every CPU")
	seed      = flag.Int64("seed", 0, "random seed. 0 seeds from the clock")
	noise     = flag.Float64("noise", 0.02, "probability of flipping an input cell")
	rotate    = flag.Int("rotate", 50, "rotate the input by 90 degrees every so many steps. 0 never rotates")
	learn     = flag.Bool("learn", true, "learn while running")
	verbose   = flag.Bool("v", false, "log the compute system")

	gifPath   = flag.String("gif", "", "write the hidden states as an animated gif")
	addr      = flag.String("http", "", "serve /stream, /frame.jpg and /ws on this address")
	model     = flag.String("model", "", "load the encoder from this file if it exists, and save it after the run")
	statsPath = flag.String("stats", "", "write per-step statistics as CSV")
	dotPath   = flag.String("dot", "", "write the dataflow of a step as graphviz")
)

// rotating rotates the inputs of src by 90 degrees every period steps.
func rotating(src sparse.Source, period int) sparse.Source {
	if period <= 0 {
		return src
	}
	return func(step int) ([]*compute.Grid, error) {
		inputs, err := src(step)
		if err != nil {
			return nil, err
		}
		retVal := append([]*compute.Grid(nil), inputs...)
		for i := 0; i < (step/period)%4; i++ {
			for j := range retVal {
				if retVal[j], err = sparse.RotateGrid(retVal[j]); err != nil {
					return nil, err
				}
			}
		}
		return retVal, nil
	}
}

func main() {
	flag.Parse()
	if *seed == 0 {
		*seed = time.Now().UnixNano()
	}

	logger := log.New(ioutil.Discard, "", 0)
	if *verbose {
		logger = log.New(os.Stderr, "compute: ", log.Ltime)
	}
	sys := compute.NewSystem(*workers, logger)
	prog, err := compute.NewProgram(chunk.Kernels)
	if err != nil {
		log.Fatalf("%+v", err)
	}

	desc := chunk.DefaultVisibleLayerDesc(*inputSize, *inputSize)
	desc.Radius = *radius
	conf := chunk.DefaultConf(*hidden, *hidden, desc)
	conf.ChunkSize = compute.Int2{X: *chunkSize, Y: *chunkSize}
	conf.NumSamples = *samples

	enc, err := chunk.New(sys, prog, conf, rand.New(rand.NewSource(*seed)))
	if err != nil {
		log.Fatalf("%+v", err)
	}

	if *dotPath != "" {
		if err = ioutil.WriteFile(*dotPath, []byte(enc.ToDot()), 0644); err != nil {
			log.Fatal(err)
		}
	}

	var outs multi
	var gifEnc *gif.Encoder
	if *gifPath != "" {
		gifEnc = gif.NewGifEncoder(600, 600)
		outs = append(outs, gifEnc)
	}
	if *addr != "" {
		stream := mjpeg.NewEncoder(600, 600)
		ws := NewEncoder(64)
		outs = append(outs, stream, ws)
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/stream", stream)
			mux.HandleFunc("/frame.jpg", stream.ServeLast)
			mux.Handle("/ws", ws)
			mux.Handle("/debug/pprof/", http.DefaultServeMux)

			log.Printf("http://%v/stream", *addr)
			log.Println(http.ListenAndServe(*addr, mux))
		}()
	}

	name := fmt.Sprintf("Moving bar %dx%d", *inputSize, *inputSize)
	runConf := sparse.Config{
		Name: name,
		Seed: *seed,
	}
	if len(outs) > 0 {
		runConf.OutputEncoder = outs
	}
	r := sparse.NewRunner(enc, runConf)

	if *model != "" {
		if _, err := os.Stat(*model); err == nil {
			if err = r.Load(*model); err != nil {
				log.Fatalf("%+v", err)
			}
			log.Printf("Loaded %v", *model)
		}
	}

	size := compute.Int2{X: *inputSize, Y: *inputSize}
	bar := signal.NewFlip(signal.NewMovingBar(size, maxInt(1, *inputSize/8)), float32(*noise), *seed+1)
	src := rotating(signal.Source(bar), *rotate)

	start := time.Now()
	if err = r.Run(src, *steps, *learn); err != nil {
		log.Println(r.ExecLog())
		log.Fatalf("%+v", err)
	}
	sys.Queue().Finish()
	log.Printf("Ran %d steps in %v. %d of %d hidden units never won", *steps, time.Since(start), r.DeadUnits(), *hidden**hidden)

	if gifEnc != nil {
		f, err := os.OpenFile(*gifPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
		if err != nil {
			log.Fatal(err)
		}
		gifEnc.Writer = f
		if err = gifEnc.Flush(); err != nil {
			log.Fatalf("%+v", err)
		}
		f.Close()
	}
	if *statsPath != "" {
		if err = r.Dump(*statsPath); err != nil {
			log.Fatalf("%+v", err)
		}
	}
	if *model != "" {
		if err = r.Save(*model); err != nil {
			log.Fatalf("%+v", err)
		}
	}
	if *addr != "" {
		log.Println("Done. Serving until interrupted")
		select {}
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
