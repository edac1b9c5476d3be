// Package styles builds the generation prompts. Every style prompt ends
// with a face-preservation clause so the model only touches the hair.
package styles

import (
	"math/rand"
	"strings"
	"sync"
)

const facePreservation = "preserve original face and facial features exactly"

var hairstyles = []string{
	"Textured Crop Fade haircut",
	"French Crop with grown-out fringe haircut",
	"Wolf Cut hairstyle",
	"Curtain Bangs Bob haircut",
	"Blunt Lob (Long Bob) haircut",
	"Shag Mullet hairstyle",
	"Undercut Pompadour haircut",
	"Skin-Fade Quiff hairstyle",
	"Burst-Fade Mohawk hairstyle",
	"Side-Part Taper haircut",
	"1950s Slick-Back hairstyle",
	"Layered Shoulder-Length haircut",
	"Classic Crew Cut haircut",
	"Hollywood Veronica Lake Waves hairstyle",
	"Classic Chignon Bun hairstyle",
	"Faux Hawk with shaved lines haircut",
	"Asymmetrical Undercut Bob haircut",
	"Two-Tone Split Dye Lob haircut",
	"Micro-Fringe Pixie haircut",
	"High Sleek Ponytail hairstyle",
	"Dutch Boxer Braids hairstyle",
	"Crown Halo Braid hairstyle",
	"Messy Textured Top Knot hairstyle",
	"Bubble Ponytail hairstyle",
	"1920s Finger Waves hairstyle",
	"Box Braids Bob hairstyle",
	"Afro Picked High hairstyle",
	"Cornrow Straight-Backs hairstyle",
	"Super Long Straight Hime Cut hairstyle",
	"Odango Buns with Long Tails hairstyle",
}

var hairColors = []string{
	"platinum blonde",
	"honey blonde",
	"ash blonde",
	"copper red",
	"auburn red",
	"burgundy red",
	"chocolate brown",
	"caramel brown",
	"jet black",
	"silver gray",
	"pastel pink",
	"lavender purple",
	"ocean blue",
	"mint green",
	"rose gold",
}

var (
	rngMu sync.Mutex
	rng   = rand.New(rand.NewSource(rand.Int63()))
)

// RandomHairstyle returns a complete restyle prompt. Color is included
// roughly two times out of three; some cuts read better in the subject's
// natural color.
func RandomHairstyle() string {
	rngMu.Lock()
	style := hairstyles[rng.Intn(len(hairstyles))]
	withColor := rng.Intn(3) > 0
	color := hairColors[rng.Intn(len(hairColors))]
	rngMu.Unlock()

	parts := []string{"change hairstyle to " + style}
	if withColor {
		parts = append(parts, "with "+color+" hair color")
	}
	return strings.Join(parts, " ") + ", " + facePreservation
}

// AnimationPrompt is the default motion for image-to-video runs.
func AnimationPrompt() string {
	return "gentle breeze animating hair and clothing"
}
