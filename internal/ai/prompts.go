package ai

const (
	ChatModel       = "gemini-flash-lite-latest"
	PlannerModel    = "gemini-2.5-pro"
	SearchModel     = "gemini-2.5-flash"
	StructuredModel = "gemini-2.5-flash"
	ImageModel      = "imagen-4.0-generate-001"

	plannerThinkingBudget = 32768
)

const (
	chatInstruction = "You are a friendly and expert travel assistant for Nepal. Provide helpful, concise, and inspiring travel advice. Keep responses under 100 words unless asked for details."

	plannerInstruction = "You are a world-class travel planner specializing in creating detailed, day-by-day, personalized, and logistical itineraries for trips in Nepal. Be thorough, creative, practical, and provide estimated costs and booking advice. Format the output in well-structured markdown."

	searchPrompt = "Provide up-to-date and accurate travel information about the following topic in Nepal: %s. Include interesting facts, what to do, how to get there, and best times to visit."

	nearbyPrompt = "Find the following near me: %s."

	guidePrompt = `Provide a detailed, engaging, and practical travel guide for "%s" in Nepal for a tourist.
Structure the response in markdown with the following sections:
- **Overview:** A captivating summary.
- **What to See & Do:** A bulleted list of key attractions and activities.
- **Best Time to Visit:** A brief recommendation.
- **How to Get There:** Practical travel advice.
- **Traveler Tips:** A few essential tips for safety, culture, or packing.

Keep the tone inspiring and helpful.`

	analyzePrompt = "This is a travel photo taken in Nepal. Identify the most likely location (place name and region) and write a short, engaging social media caption for it."
)

// Fixed messages shown in place of failed AI output.
const (
	Greeting       = "Hello! I'm your AI travel assistant for Nepal. I can help you plan the perfect trip based on your interests, budget, and timeline. What kind of experience are you looking for?"
	ChatApology    = "Sorry, I am having trouble connecting. Please try again later."
	PlanFailure    = "Sorry, I couldn't generate a plan. The AI service might be busy. Please try again."
	PlanEmpty      = "Please describe the trip you'd like to plan."
	SearchFailure  = "Sorry, the AI search failed. Please try again."
	PlacesFailure  = "Failed to fetch places. Please try again."
	PlacesNone     = "AI couldn't find any %s nearby. Try another search."
	LocationNotice = "Could not get your location. Showing results for Kathmandu."
	GuideFailure   = "Failed to load details from AI. Please try again."
)
