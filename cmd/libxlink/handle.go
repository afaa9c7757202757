package main

/*
#include <stdint.h>
#include "include/xlink_types.h"

static xlink_sdk_t* xlink_sdk_from_token(uintptr_t token) { return (xlink_sdk_t*)token; }
static uintptr_t xlink_token_from_sdk(xlink_sdk_t* sdk) { return (uintptr_t)sdk; }
*/
import "C"

import "runtime/cgo"

// The C pointer carries the handle token itself and never points to Go
// memory.

func sdkFromHandle(h cgo.Handle) *C.xlink_sdk_t {
	return C.xlink_sdk_from_token(C.uintptr_t(h))
}

func handleFromSDK(sdk *C.xlink_sdk_t) cgo.Handle {
	return cgo.Handle(C.xlink_token_from_sdk(sdk))
}
