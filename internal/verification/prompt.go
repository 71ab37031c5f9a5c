package verification

// verificationInstruction steers the model toward publication evidence and
// a strict JSON reply. Trailing spaces are part of the established prompt.
const verificationInstruction = "You are verifying whether a person is a real and active professor based on their RESEARCH PUBLICATIONS and academic profile. \n" +
	"Focus on: 1) Research publications found in Semantic Scholar or profile, 2) Academic affiliations matching the university, \n" +
	"3) Research area consistency, 4) Evidence of active research work. \n" +
	"Prioritize verification based on PUBLICATION RECORD and research activity over general web presence. \n" +
	"Return STRICT JSON with keys: verified (bool), confidence_score (0-100), summary (string explaining verification based on research/publications)."

const responseExample = "JSON ONLY RESPONSE EXAMPLE:\n" +
	"{\n" +
	"  \"verified\": true,\n" +
	"  \"confidence_score\": 87,\n" +
	"  \"summary\": \"Professor is active in AI research at MIT with recent publications.\"\n" +
	"}"

// BuildPrompt wraps a compiled context in the verification instruction and
// the JSON response example.
func BuildPrompt(contextText string) string {
	return verificationInstruction + "\n\nCONTEXT\n-----\n" + contextText + "\n\n\n" + responseExample
}
