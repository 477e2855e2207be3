package analysis

import "strings"

// SystemPrompt casts the model as a real-estate marketing copywriter.
const SystemPrompt = `You are a real-estate marketing expert working for a Portuguese agency. ` +
	`You write persuasive, accurate listing copy in European Portuguese and English. ` +
	`You never invent features that are not supported by the source text, and you always ` +
	`answer with a single JSON object and nothing else.`

// BuildUserMessage embeds the extracted listing text verbatim and states the
// exact JSON contract the reply must follow.
func BuildUserMessage(extractedText string) string {
	var b strings.Builder
	b.WriteString("Analyze the following real-estate document and produce marketing content for it.\n\n")
	b.WriteString("DOCUMENT TEXT:\n")
	b.WriteString(extractedText)
	b.WriteString("\n\n")
	b.WriteString("Respond with ONLY a JSON object using exactly these field names:\n")
	b.WriteString(`{
  "announcementTitle": "catchy listing title, at most 60 characters",
  "longDescriptionPt": "detailed description in European Portuguese, at least 500 characters",
  "longDescriptionEn": "detailed description in English, at least 500 characters",
  "instagramPost": "Instagram caption with emojis and hashtags, at most 300 characters",
  "keyFeatures": ["5 to 7 short feature bullet points"],
  "targetAudience": "who this property is for",
  "callToAction": "one closing sentence inviting contact"
}`)
	b.WriteString("\n\nDo not wrap the JSON in markdown code fences. Do not add any text before or after the JSON object.")
	return b.String()
}
