package research

import (
	"time"

	"github.com/Kowayz/ytb-story-horro-gen/internal/types"
)

const demoText = `I always thought the scratching sounds in my walls were just mice. I set traps, called an exterminator, even tried to seal up any holes I could find. But the scratching continued, night after night, always at exactly 3:13 AM.

Last night, I decided to stay awake and investigate. Armed with a flashlight and a baseball bat, I waited in the darkness of my bedroom. At 3:13 AM, the scratching began. But this time, it wasn't coming from the walls.

It was coming from under my bed.

I slowly leaned over the edge, shining my flashlight into the darkness below. Two pale hands reached out and grabbed my wrist. The grip was ice cold. A raspy voice whispered: "Finally... you're awake."

I never sleep in that room anymore.`

// DemoStory is the built-in story used when no source can deliver one
func DemoStory() *types.Story {
	now := time.Now().UTC()
	return &types.Story{
		ID:        "demo",
		Title:     "The Midnight Visitor",
		Text:      demoText,
		Author:    "DemoAuthor",
		Source:    "demo",
		SourceURL: "https://reddit.com/r/scarystories",
		CreatedAt: &now,
	}
}
