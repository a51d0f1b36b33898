package usage

import (
	"encoding/base64"
	"math"
	"strings"
	"unicode/utf8"
)

const (
	charsPerToken     = 4
	perMessageTokens  = 4
	costMargin        = 1.10
	pricePerTokenUnit = 1_000_000

	// Image heuristic: the encoded payload is assumed to be about a tenth of
	// the raw 24-bit bitmap. The bitmap is tiled into 512px squares as the
	// provider does for high-detail images, which also caps a single image
	// at 8 tiles after its own downscaling.
	imageCompressionRatio = 10
	imageBytesPerPixel    = 3
	imageTileSide         = 512
	imageTokensPerTile    = 170
	imageBaseTokens       = 85
	imageMaxTiles         = 8
)

// EstimateTokens approximates the token count of text at four characters per
// token, rounding up.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	return (utf8.RuneCountInString(text) + charsPerToken - 1) / charsPerToken
}

// EstimateMessageTokens adds a fixed per-message overhead to the text
// estimate of each message.
func EstimateMessageTokens(contents []string) int {
	total := 0
	for _, c := range contents {
		total += EstimateTokens(c) + perMessageTokens
	}
	return total
}

// EstimateImageTokens approximates the token charge of an inline image from
// the size of its encoded payload. It never inspects pixels, so the result is
// an estimate only. Non-data URLs are charged the base cost.
func EstimateImageTokens(image string) int {
	image = strings.TrimSpace(image)
	if image == "" {
		return 0
	}
	payload := image
	if strings.HasPrefix(image, "data:") {
		if i := strings.IndexByte(image, ','); i >= 0 {
			payload = image[i+1:]
		}
	} else if strings.HasPrefix(image, "http://") || strings.HasPrefix(image, "https://") {
		return imageBaseTokens
	}

	encoded := base64.StdEncoding.DecodedLen(len(payload))
	pixels := float64(encoded*imageCompressionRatio) / imageBytesPerPixel
	tiles := int(math.Ceil(pixels / (imageTileSide * imageTileSide)))
	if tiles < 1 {
		tiles = 1
	}
	if tiles > imageMaxTiles {
		tiles = imageMaxTiles
	}
	return imageBaseTokens + tiles*imageTokensPerTile
}

// Cost prices a request with per-million-token rates plus the service
// margin. Image tokens are billed at the input rate.
func Cost(inputTokens, outputTokens, imageTokens int, inputPrice, outputPrice float64) float64 {
	in := float64(inputTokens+imageTokens) * inputPrice
	out := float64(outputTokens) * outputPrice
	return (in + out) / pricePerTokenUnit * costMargin
}
