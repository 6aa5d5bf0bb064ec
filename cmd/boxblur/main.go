package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"runtime"
	"strconv"

	"github.com/boatbomber/boxblur"
	"github.com/boatbomber/boxblur/utils"
	charmlog "github.com/charmbracelet/log"
	"github.com/joho/godotenv"
)

const helpBanner = `
┌┐ ┌─┐─┐ ┬┌┐ ┬  ┬ ┬┬─┐
├┴┐│ │┌┴┬┘├┴┐│  │ │├┬┘
└─┘└─┘┴ └─└─┘┴─┘└─┘┴└─

Fast Gaussian blur approximation with three box blur passes.
    Version: %s

`

// pipeName is the file name that indicates stdin/stdout is being used.
const pipeName = "-"

// Version indicates the current build version.
var Version string

func main() {
	log.SetFlags(0)

	// Flag defaults can be overridden from the environment or an optional .env file.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("could not load the .env file: %v", err)
	}

	var (
		source      = flag.String("in", pipeName, "Source")
		destination = flag.String("out", pipeName, "Destination")
		blurRadius  = flag.Float64("blur", envFloat("BOXBLUR_RADIUS", boxblur.DefaultBlurRadius), "Blur strength (Gaussian standard deviation)")
		downscale   = flag.Float64("scale", envFloat("BOXBLUR_DOWNSCALE", 1), "Downscale factor applied before blurring (1 disables it)")
		skipAlpha   = flag.Bool("skip-alpha", envBool("BOXBLUR_SKIP_ALPHA", false), "Leave the alpha channel untouched")
		mode        = flag.String("mode", envString("BOXBLUR_MODE", boxblur.InPlace.String()), "Blur mode: inplace or buffered")
		faceDetect  = flag.Bool("face", false, "Blur only the detected faces")
		faceAngle   = flag.Float64("angle", 0.0, "Plane rotated faces angle")
		cascade     = flag.String("cc", envString("BOXBLUR_CASCADE", ""), "Face classifier cascade file")
		workers     = flag.Int("conc", runtime.NumCPU(), "Number of files to process concurrently")
		configFile  = flag.String("config", envString("BOXBLUR_CONFIG", ""), "TOML file presetting the blur options")
		verbose     = flag.Bool("v", false, "Verbose logging")
	)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, helpBanner, Version)
		flag.PrintDefaults()
	}
	flag.Parse()

	if *configFile != "" {
		cfg, err := loadConfig(*configFile)
		if err == nil {
			err = cfg.apply(flag.CommandLine)
		}
		if err != nil {
			log.Fatal(utils.DecorateText(err.Error(), utils.ErrorMessage))
		}
	}

	if *verbose {
		boxblur.SetLogger(slog.New(charmlog.NewWithOptions(os.Stderr, charmlog.Options{
			ReportTimestamp: true,
			TimeFormat:      "15:04:05.00",
			Level:           charmlog.DebugLevel,
		})))
	}

	blurMode, err := boxblur.ParseMode(*mode)
	if err != nil {
		flag.Usage()
		log.Fatal(utils.DecorateText(err.Error(), utils.ErrorMessage))
	}
	if *blurRadius < 0 {
		flag.Usage()
		log.Fatal(utils.DecorateText("\nThe blur strength should not be negative!", utils.ErrorMessage))
	}
	if *faceDetect && len(*cascade) == 0 {
		log.Fatal(utils.DecorateText("Please specify a face classifier in case you are using the -face flag!\n", utils.ErrorMessage))
	}

	proc := &boxblur.Processor{
		BlurRadius:      *blurRadius,
		DownscaleFactor: *downscale,
		SkipAlpha:       *skipAlpha,
		Mode:            blurMode,
		FaceDetect:      *faceDetect,
		FaceAngle:       *faceAngle,
		Classifier:      *cascade,
	}

	proc.Execute(&boxblur.Ops{
		Src:      *source,
		Dst:      *destination,
		PipeName: pipeName,
		Workers:  *workers,
	})
}

func envString(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

func envFloat(key string, def float64) float64 {
	if v, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
		log.Printf("ignoring invalid %s value %q", key, v)
	}
	return def
}

func envBool(key string, def bool) bool {
	if v, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
		log.Printf("ignoring invalid %s value %q", key, v)
	}
	return def
}
