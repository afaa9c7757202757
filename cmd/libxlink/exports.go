// Command libxlink builds the xlink C library:
//
//	go build -buildmode=c-shared -o libxlink.so ./cmd/libxlink
//
// C callers include include/xlink.h.
package main

/*
#include "include/xlink_types.h"
*/
import "C"

import "github.com/Kirky-X/xlink"

func main() {}

func goUUID(u C.xlink_uuid_t) [16]byte {
	var id [16]byte
	for i, b := range u.data {
		id[i] = byte(b)
	}
	return id
}

// text copies a borrowed C string. NULL is reported separately from "".
func text(p *C.char) (string, bool) {
	if p == nil {
		return "", false
	}
	return C.GoString(p), true
}

//export xlink_init
func xlink_init() *C.xlink_sdk_t {
	h := initClient()
	if h == 0 {
		return nil
	}
	return sdkFromHandle(h)
}

//export xlink_free
func xlink_free(sdk *C.xlink_sdk_t) {
	if sdk == nil {
		return
	}
	freeClient(handleFromSDK(sdk))
}

//export xlink_send_text
func xlink_send_text(sdk *C.xlink_sdk_t, target C.xlink_device_id_t, msg *C.char) C.int32_t {
	if sdk == nil {
		return C.int32_t(xlink.StatusInvalidArgument)
	}
	s, ok := text(msg)
	if !ok {
		return C.int32_t(xlink.StatusInvalidArgument)
	}
	return C.int32_t(sendText(handleFromSDK(sdk), xlink.DeviceID(goUUID(target)), s))
}

//export xlink_broadcast_text
func xlink_broadcast_text(sdk *C.xlink_sdk_t, gid C.xlink_group_id_t, msg *C.char) C.int32_t {
	if sdk == nil {
		return C.int32_t(xlink.StatusInvalidArgument)
	}
	s, ok := text(msg)
	if !ok {
		return C.int32_t(xlink.StatusInvalidArgument)
	}
	return C.int32_t(broadcastText(handleFromSDK(sdk), xlink.GroupID(goUUID(gid)), s))
}
