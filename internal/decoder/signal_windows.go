//go:build windows

package decoder

import "os"

// terminateSignal has no SIGTERM equivalent on Windows; os.Kill is used
// directly and Kill's grace wait becomes a formality.
var terminateSignal = os.Kill
