package main

// Options are the command line flags of the bridge daemon.
type Options struct {
	ConfigURL string `short:"f" long:"config" description:"config location, any afs-supported URL" required:"true"`
	Addr      string `short:"a" long:"addr" description:"listen address override"`
	Stdio     bool   `long:"stdio" description:"serve the protocol over stdio instead of HTTP"`
}
