// Package xlink is a messaging client for reaching devices and groups of
// devices over whatever transport currently works best.
//
// A Client is created with Init or New and released with Close:
//
//	c, err := xlink.Init()
//	if err != nil {
//		return err
//	}
//	defer c.Close()
//
//	err = c.SendText(ctx, peer, "hello")
//
// Every error maps onto a stable Status through StatusOf, which is what the
// C library built from cmd/libxlink returns.
//
// Messages are persisted before they are transmitted. A failed transmission
// leaves the message pending and a background loop retries it until it is
// delivered or runs out of attempts.
package xlink
