package scripted

import (
	"encoding/json"
	"fmt"

	"github.com/dop251/goja"
	"github.com/rs/zerolog"
)

// newVM creates a goja runtime with the bindings every resolver script gets:
// a console that routes to the session logger and JSON helpers.
func newVM(logger zerolog.Logger) *goja.Runtime {
	vm := goja.New()
	setupConsole(vm, logger)
	setupUtils(vm)
	return vm
}

// setupConsole creates console.log/warn/error/debug bindings
func setupConsole(vm *goja.Runtime, logger zerolog.Logger) {
	console := vm.NewObject()

	logAt := func(emit func() *zerolog.Event) func(goja.FunctionCall) goja.Value {
		return func(call goja.FunctionCall) goja.Value {
			args := make([]interface{}, len(call.Arguments))
			for i, arg := range call.Arguments {
				args[i] = arg.Export()
			}
			emit().Msgf("[resolver] %v", args)
			return goja.Undefined()
		}
	}

	console.Set("log", logAt(func() *zerolog.Event { return logger.Info() }))
	console.Set("warn", logAt(func() *zerolog.Event { return logger.Warn() }))
	console.Set("error", logAt(func() *zerolog.Event { return logger.Error() }))
	console.Set("debug", logAt(func() *zerolog.Event { return logger.Debug() }))

	vm.Set("console", console)
}

// setupUtils creates JSON helpers for resolver scripts
func setupUtils(vm *goja.Runtime) {
	utils := vm.NewObject()

	utils.Set("parseJSON", func(call goja.FunctionCall) goja.Value {
		if len(call.Arguments) < 1 {
			panic(vm.ToValue("parseJSON requires a string"))
		}
		var result interface{}
		if err := json.Unmarshal([]byte(call.Arguments[0].String()), &result); err != nil {
			panic(vm.ToValue(fmt.Sprintf("invalid JSON: %v", err)))
		}
		return vm.ToValue(result)
	})

	utils.Set("stringifyJSON", func(call goja.FunctionCall) goja.Value {
		if len(call.Arguments) < 1 {
			panic(vm.ToValue("stringifyJSON requires a value"))
		}
		data, err := json.Marshal(call.Arguments[0].Export())
		if err != nil {
			panic(vm.ToValue(fmt.Sprintf("cannot stringify: %v", err)))
		}
		return vm.ToValue(string(data))
	})

	vm.Set("utils", utils)
}
