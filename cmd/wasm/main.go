//go:build js && wasm
// +build js,wasm

package main

import (
	"context"
	"errors"
	"fmt"
	"syscall/js"

	"github.com/himanishpuri/MelodyMatch/pkg/melodymatch/match"
	"github.com/himanishpuri/MelodyMatch/pkg/melodymatch/similarity"
	"github.com/himanishpuri/MelodyMatch/pkg/models"
)

// Error codes returned to JavaScript
const (
	ErrorNone = iota
	ErrorInvalidArgs
	ErrorProcessing
	ErrorDimensionMismatch
)

var matcher = match.NewMatcher()

// Computes the cosine similarity of two feature arrays.
// Returns: {error: number, data: number | string}
func cosineSimilarity(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return makeErrorResponse(ErrorInvalidArgs, "Expected 2 arguments: featuresA, featuresB")
	}

	a, err := toFeatures(args[0], "featuresA")
	if err != nil {
		return makeErrorResponse(ErrorInvalidArgs, err.Error())
	}
	b, err := toFeatures(args[1], "featuresB")
	if err != nil {
		return makeErrorResponse(ErrorInvalidArgs, err.Error())
	}

	sim, err := similarity.Cosine(a, b)
	if err != nil {
		return makeErrorResponse(errorCode(err), err.Error())
	}

	result := js.Global().Get("Object").New()
	result.Set("error", ErrorNone)
	result.Set("data", sim)
	return result
}

// Ranks candidate songs against a target feature array.
// candidates is an array of {id, name, artist, features} objects.
// Returns: {error: number, data: array | string}
func matchTopK(this js.Value, args []js.Value) interface{} {
	if len(args) < 3 {
		return makeErrorResponse(ErrorInvalidArgs, "Expected 3 arguments: targetFeatures, candidates, topK")
	}

	target, err := toFeatures(args[0], "targetFeatures")
	if err != nil {
		return makeErrorResponse(ErrorInvalidArgs, err.Error())
	}

	candidatesJS := args[1]
	if candidatesJS.Type() != js.TypeObject {
		return makeErrorResponse(ErrorInvalidArgs, "candidates must be an Array")
	}
	if args[2].Type() != js.TypeNumber {
		return makeErrorResponse(ErrorInvalidArgs, "topK must be a number")
	}
	topK := args[2].Int()

	candidates := make([]models.Song, candidatesJS.Length())
	for i := range candidates {
		c := candidatesJS.Index(i)
		if c.Type() != js.TypeObject {
			return makeErrorResponse(ErrorInvalidArgs, fmt.Sprintf("candidate %d is not an object", i))
		}
		features, err := toFeatures(c.Get("features"), fmt.Sprintf("candidate %d features", i))
		if err != nil {
			return makeErrorResponse(ErrorInvalidArgs, err.Error())
		}
		candidates[i] = models.Song{
			ID:       stringField(c, "id"),
			Name:     stringField(c, "name"),
			Artist:   stringField(c, "artist"),
			Features: features,
		}
	}

	ranked, err := matcher.Match(context.Background(), models.Song{Features: target}, candidates, topK)
	if err != nil {
		return makeErrorResponse(errorCode(err), err.Error())
	}

	resultArray := js.Global().Get("Array").New()
	for i, r := range models.ToMatchResults(ranked) {
		obj := js.Global().Get("Object").New()
		obj.Set("id", r.SongID)
		obj.Set("name", r.Name)
		obj.Set("artist", r.Artist)
		obj.Set("similarity", r.Similarity)
		resultArray.SetIndex(i, obj)
	}

	result := js.Global().Get("Object").New()
	result.Set("error", ErrorNone)
	result.Set("data", resultArray)
	return result
}

func toFeatures(v js.Value, name string) ([]float64, error) {
	if v.Type() != js.TypeObject {
		return nil, fmt.Errorf("%s must be an Array or Float64Array", name)
	}
	length := v.Length()
	if length == 0 {
		return nil, fmt.Errorf("%s is empty", name)
	}

	features := make([]float64, length)
	for i := 0; i < length; i++ {
		val := v.Index(i)
		if val.Type() != js.TypeNumber {
			return nil, fmt.Errorf("%s element %d is not a number", name, i)
		}
		features[i] = val.Float()
	}
	return features, nil
}

func stringField(v js.Value, key string) string {
	f := v.Get(key)
	if f.Type() != js.TypeString {
		return ""
	}
	return f.String()
}

func errorCode(err error) int {
	if errors.Is(err, similarity.ErrDimensionMismatch) {
		return ErrorDimensionMismatch
	}
	return ErrorProcessing
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
		console.Call("log", "🔧 MelodyMatch WASM module initializing...")
	}

	done := make(chan struct{})

	js.Global().Set("cosineSimilarity", js.FuncOf(cosineSimilarity))
	js.Global().Set("matchTopK", js.FuncOf(matchTopK))

	if !console.IsUndefined() {
		console.Call("log", "📝 cosineSimilarity and matchTopK functions registered")
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
		console.Call("log", "✅ MelodyMatch WASM module loaded and ready")
	}

	<-done
}
