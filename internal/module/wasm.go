package module

import (
	"context"
	"encoding/json"

	"github.com/tetratelabs/wazero/api"

	"github.com/wpcore-go/wpcore/internal/wperr"
)

// callModuleInit invokes a WASM module's "module_init" export, passing
// argsJSON through the module's own linear memory and decoding the
// descriptor it writes back the same way — the generalized,
// sandboxed-by-WASM-memory-isolation equivalent of the original native
// engine's module_init(core, args) -> plugin_object? ABI.
//
// The exported function is expected to have the signature
// (argsPtr, argsLen uint32) -> (descPtr, descLen uint64-packed), with
// "alloc" exported for the host to reserve space for argsJSON and the
// module itself responsible for allocating its return buffer.
func callModuleInit(ctx context.Context, mod api.Module, argsJSON []byte) (Descriptor, error) {
	alloc := mod.ExportedFunction("alloc")
	init := mod.ExportedFunction("module_init")
	if alloc == nil || init == nil {
		return Descriptor{}, wperr.Withf(wperr.KindOperationFailed, "callModuleInit", "module does not export alloc/module_init")
	}

	argsLen := uint64(len(argsJSON))
	res, err := alloc.Call(ctx, argsLen)
	if err != nil {
		return Descriptor{}, wperr.New(wperr.KindOperationFailed, "callModuleInit", err)
	}
	argsPtr := uint32(res[0])
	if !mod.Memory().Write(argsPtr, argsJSON) {
		return Descriptor{}, wperr.Withf(wperr.KindOperationFailed, "callModuleInit", "failed writing args into module memory")
	}

	ret, err := init.Call(ctx, uint64(argsPtr), argsLen)
	if err != nil {
		return Descriptor{}, wperr.New(wperr.KindOperationFailed, "callModuleInit", err)
	}
	if len(ret) == 0 {
		return Descriptor{}, wperr.Withf(wperr.KindInvalidArgument, "callModuleInit", "module_init returned no value")
	}
	packed := ret[0]
	descPtr := uint32(packed >> 32)
	descLen := uint32(packed)

	raw, ok := mod.Memory().Read(descPtr, descLen)
	if !ok {
		return Descriptor{}, wperr.Withf(wperr.KindOperationFailed, "callModuleInit", "failed reading descriptor from module memory")
	}
	var desc Descriptor
	if err := json.Unmarshal(raw, &desc); err != nil {
		return Descriptor{}, wperr.New(wperr.KindInvalidArgument, "callModuleInit", err)
	}
	return desc, nil
}
