//go:build js && wasm
// +build js,wasm

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"syscall/js"

	"github.com/himanishpuri/CardioDNA/pkg/cardiodna/features"
	"github.com/himanishpuri/CardioDNA/pkg/cardiodna/waveform"
	"github.com/himanishpuri/CardioDNA/pkg/models"
)

// Error codes returned to JavaScript
const (
	ErrorNone = iota
	ErrorInvalidArgs
	ErrorValidation
	ErrorExtraction
)

var extractor = features.Default()

// Checks a 130-sample window against the input rules.
// Returns: {error: number, data: true | {reason, message}}
func validateSignal(this js.Value, args []js.Value) interface{} {
	samples, errResp := readSamples(args)
	if errResp != nil {
		return *errResp
	}

	if err := waveform.Validate(samples); err != nil {
		return makeValidationResponse(err)
	}

	result := js.Global().Get("Object").New()
	result.Set("error", ErrorNone)
	result.Set("data", true)
	return result
}

// Runs feature extraction on a window in the browser, without the model.
// Returns: {error: number, data: object | string}
func extractFeatures(this js.Value, args []js.Value) interface{} {
	samples, errResp := readSamples(args)
	if errResp != nil {
		return *errResp
	}

	if err := waveform.Validate(samples); err != nil {
		return makeValidationResponse(err)
	}

	fs, q, err := extractor.Extract(samples)
	if err != nil {
		var eerr *features.ExtractionError
		if errors.As(err, &eerr) {
			return makeErrorResponse(ErrorExtraction, eerr.Reason)
		}
		return makeErrorResponse(ErrorExtraction, err.Error())
	}

	payload, err := json.Marshal(models.FeatureReport{FeatureSet: fs, SignalQuality: q})
	if err != nil {
		return makeErrorResponse(ErrorExtraction, err.Error())
	}
	data := js.Global().Get("JSON").Call("parse", string(payload))

	result := js.Global().Get("Object").New()
	result.Set("error", ErrorNone)
	result.Set("data", data)
	return result
}

func readSamples(args []js.Value) ([]float64, *js.Value) {
	if len(args) < 1 {
		resp := makeErrorResponse(ErrorInvalidArgs, "Expected 1 argument: ecgArray")
		return nil, &resp
	}

	arr := args[0]
	if arr.Type() != js.TypeObject {
		resp := makeErrorResponse(ErrorInvalidArgs, "ecgArray must be an Array or Float64Array")
		return nil, &resp
	}

	length := arr.Length()
	samples := make([]float64, length)
	for i := 0; i < length; i++ {
		val := arr.Index(i)
		if val.Type() != js.TypeNumber {
			resp := makeErrorResponse(ErrorInvalidArgs, fmt.Sprintf("ecgArray element %d is not a number", i))
			return nil, &resp
		}
		samples[i] = val.Float()
	}
	return samples, nil
}

func makeValidationResponse(err error) js.Value {
	var verr *waveform.ValidationError
	if !errors.As(err, &verr) {
		return makeErrorResponse(ErrorValidation, err.Error())
	}

	detail := js.Global().Get("Object").New()
	detail.Set("reason", string(verr.Reason))
	detail.Set("message", verr.Error())
	if verr.Index >= 0 {
		detail.Set("index", verr.Index)
	}

	result := js.Global().Get("Object").New()
	result.Set("error", ErrorValidation)
	result.Set("data", detail)
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
	if !console.IsUndefined() {
		console.Call("log", "🔧 CardioDNA WASM module initializing...")
	}

	done := make(chan struct{})

	js.Global().Set("validateSignal", js.FuncOf(validateSignal))
	js.Global().Set("extractFeatures", js.FuncOf(extractFeatures))

	if !console.IsUndefined() {
		console.Call("log", "📝 validateSignal, extractFeatures registered")
	}

	window := js.Global().Get("window")
	if !window.IsUndefined() {
		eventInit := js.Global().Get("Object").New()
		event := js.Global().Get("CustomEvent").New("wasmReady", eventInit)
		window.Call("dispatchEvent", event)
	} else if !console.IsUndefined() {
		console.Call("error", "❌ window object is undefined!")
	}

	if !console.IsUndefined() {
		console.Call("log", "✅ CardioDNA WASM module loaded and ready")
	}

	<-done
}
