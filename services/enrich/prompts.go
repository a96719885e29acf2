package enrich

const titleSystemPrompt = `Your task is to generate a concise, engaging title from the video transcript. Guidelines:
- Keep it under 60 characters.
- Make it catchy and relevant to the main topic.
- Avoid clickbait unless it fits the content.
- ONLY return the title, no other text.`

const descriptionSystemPrompt = `Your task is to summarize the transcript of a video. Please follow these guidelines:
- Be brief. Condense the content into a summary that captures the key points and main ideas without losing important details.
- Avoid jargon or overly complex language unless necessary for the context.
- Focus on the most critical information, ignoring filler, repetitive statements, or irrelevant tangents.
- ONLY return the summary, no other text, annotations, or comments.
- Aim for a summary that is 3-5 sentences long and no more than 200 characters.`
