/*
Package boxblur is a fast Gaussian blur approximation library, which blurs packed RGBA
pixel buffers with three successive separable box-blur passes.

The blur strength is converted into three box radii, then every pass averages each
row and afterwards each column with a sliding window, replicating the edge pixels
for samples falling outside the image.

The package provides a command line interface, supporting various flags for the blur options.
To check the supported commands type:

	$ boxblur --help

In case you wish to integrate the API in a self constructed environment here is a simple example:

	package main

	import (
		"fmt"
		"github.com/boatbomber/boxblur"
	)

	func main() {
		p := boxblur.NewProcessor()
		p.BlurRadius = 4
		p.DownscaleFactor = 1

		if err := p.Process(in, out); err != nil {
			fmt.Printf("Error blurring image: %s", err.Error())
		}
	}

Raw buffers can be blurred without an image:

	radii, _ := boxblur.ComputeBoxRadii(2)
	err := boxblur.BlurPasses(buf, width, height, radii, false, boxblur.InPlace)
*/
package boxblur
