// ABOUTME: Product and version identification
// ABOUTME: Reported in client/hello and by the -version flag
package version

const (
	// Version is the release version
	Version = "0.3.0"

	// Product names the listener in device info
	Product = "onair-go"

	// Manufacturer identifies the publisher in device info
	Manufacturer = "Resonate"
)

// String renders product and version for banners
func String() string {
	return Product + " " + Version
}
