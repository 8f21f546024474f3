//go:build js && wasm

package main

import (
	"fmt"
	"syscall/js"

	"github.com/himanishpuri/AudioLab/pkg/audiolab/align"
	"github.com/himanishpuri/AudioLab/pkg/audiolab/audio"
	"github.com/himanishpuri/AudioLab/pkg/audiolab/mix"
	"github.com/himanishpuri/AudioLab/pkg/audiolab/waveform"
)

// Error codes returned to JavaScript
const (
	ErrorNone = iota
	ErrorInvalidArgs
	ErrorProcessing
	ErrorAlignmentFailed
)

// readTrack converts an interleaved JS sample array into a buffer.
func readTrack(name string, dataJS, rateJS, channelsJS js.Value) (*audio.Buffer, error) {
	if dataJS.Type() != js.TypeObject {
		return nil, fmt.Errorf("%s must be an Array or Float32Array", name)
	}
	if rateJS.Type() != js.TypeNumber || channelsJS.Type() != js.TypeNumber {
		return nil, fmt.Errorf("%s sample rate and channels must be numbers", name)
	}

	sampleRate := rateJS.Int()
	channels := channelsJS.Int()
	if sampleRate <= 0 {
		return nil, fmt.Errorf("invalid %s sample rate: %d", name, sampleRate)
	}
	if channels < 1 || channels > 2 {
		return nil, fmt.Errorf("%s channels must be 1 (mono) or 2 (stereo), got: %d", name, channels)
	}

	length := dataJS.Length()
	if length == 0 {
		return nil, fmt.Errorf("%s is empty", name)
	}
	samples := make([]float64, length)
	for i := 0; i < length; i++ {
		val := dataJS.Index(i)
		if val.Type() != js.TypeNumber {
			return nil, fmt.Errorf("%s element %d is not a number", name, i)
		}
		samples[i] = val.Float()
	}
	return audio.FromInterleaved(samples, channels, sampleRate)
}

// Estimates the lag between two interleaved tracks.
// Args: a, sampleRateA, channelsA, b, sampleRateB, channelsB[, method]
// Returns: {error: number, data: object | string}
func estimateAlignment(this js.Value, args []js.Value) interface{} {
	if len(args) < 6 {
		return makeErrorResponse(ErrorInvalidArgs, "Expected 6 arguments: a, sampleRateA, channelsA, b, sampleRateB, channelsB")
	}

	a, err := readTrack("a", args[0], args[1], args[2])
	if err != nil {
		return makeErrorResponse(ErrorInvalidArgs, err.Error())
	}
	b, err := readTrack("b", args[3], args[4], args[5])
	if err != nil {
		return makeErrorResponse(ErrorInvalidArgs, err.Error())
	}

	opts := align.DefaultOptions()
	if len(args) > 6 && args[6].Type() == js.TypeString {
		opts.Method = args[6].String()
	}

	res, err := align.Estimate(a, b, opts)
	if err != nil {
		return makeErrorResponse(ErrorAlignmentFailed, fmt.Sprintf("Alignment failed: %v", err))
	}

	data := js.Global().Get("Object").New()
	data.Set("lagSec", res.LagSec)
	data.Set("lagSamples", res.LagSamples)
	data.Set("envelopeRate", res.EnvelopeRate)
	data.Set("score", res.Score)
	data.Set("offsetA", res.OffsetA())
	data.Set("offsetB", res.OffsetB())
	data.Set("commonDuration", align.CommonDuration(a.Duration(), b.Duration(), res.LagSec))
	return makeResponse(data)
}

// Reduces an interleaved track to waveform columns.
// Args: samples, sampleRate, channels, width[, startSec, maxDurationSec]
// Returns: {error: number, data: array | string}
func extractWaveform(this js.Value, args []js.Value) interface{} {
	if len(args) < 4 {
		return makeErrorResponse(ErrorInvalidArgs, "Expected 4 arguments: samples, sampleRate, channels, width")
	}
	buf, err := readTrack("samples", args[0], args[1], args[2])
	if err != nil {
		return makeErrorResponse(ErrorInvalidArgs, err.Error())
	}
	if args[3].Type() != js.TypeNumber {
		return makeErrorResponse(ErrorInvalidArgs, "width must be a number")
	}

	var startSec, maxDur float64
	if len(args) > 4 && args[4].Type() == js.TypeNumber {
		startSec = args[4].Float()
	}
	if len(args) > 5 && args[5].Type() == js.TypeNumber {
		maxDur = args[5].Float()
	}

	points := waveform.Extract(buf, args[3].Int(), startSec, maxDur)
	if len(points) == 0 {
		return makeErrorResponse(ErrorProcessing, "No waveform points (region is empty)")
	}

	arr := js.Global().Get("Array").New(len(points))
	for i, p := range points {
		obj := js.Global().Get("Object").New()
		obj.Set("min", p.Min)
		obj.Set("max", p.Max)
		obj.Set("rms", p.RMS)
		arr.SetIndex(i, obj)
	}
	return makeResponse(arr)
}

// Maps a 0-100 slider to equal-power gains.
// Returns: {error: number, data: {a, b, aRatio, bRatio, aPct, bPct}}
func equalPowerGains(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 || args[0].Type() != js.TypeNumber {
		return makeErrorResponse(ErrorInvalidArgs, "Expected 1 argument: slider")
	}
	g := mix.EqualPower(args[0].Int())

	data := js.Global().Get("Object").New()
	data.Set("a", g.A)
	data.Set("b", g.B)
	data.Set("aRatio", g.ARatio)
	data.Set("bRatio", g.BRatio)
	data.Set("aPct", g.APct)
	data.Set("bPct", g.BPct)
	return makeResponse(data)
}

func makeResponse(data js.Value) js.Value {
	result := js.Global().Get("Object").New()
	result.Set("error", ErrorNone)
	result.Set("data", data)
	return result
}

func makeErrorResponse(errorCode int, message string) js.Value {
	result := js.Global().Get("Object").New()
	result.Set("error", errorCode)
	result.Set("data", message)
	return result
}

func main() {
	console := js.Global().Get("console")
	logf := func(method, msg string) {
		if !console.IsUndefined() {
			console.Call(method, msg)
		}
	}
	logf("log", "🔧 AudioLab WASM module initializing...")

	done := make(chan struct{})

	js.Global().Set("estimateAlignment", js.FuncOf(estimateAlignment))
	js.Global().Set("extractWaveform", js.FuncOf(extractWaveform))
	js.Global().Set("equalPowerGains", js.FuncOf(equalPowerGains))
	logf("log", "📝 estimateAlignment, extractWaveform and equalPowerGains registered")

	window := js.Global().Get("window")
	if !window.IsUndefined() {
		event := js.Global().Get("CustomEvent").New("wasmReady", js.Global().Get("Object").New())
		window.Call("dispatchEvent", event)
		logf("log", "✅ wasmReady event dispatched")
	} else {
		logf("error", "❌ window object is undefined!")
	}

	logf("log", "✅ AudioLab WASM module loaded and ready")
	<-done
}
