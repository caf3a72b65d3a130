package llm

import (
	"fmt"
	"strings"
)

const instructionTemplate = `You are an expert in ATS (Applicant Tracking Systems) and resume review.
Analyze and rate the attached resume and suggest how to improve it.
The rating can be low if the resume is bad.
Be thorough and detailed. Don't be afraid to point out any mistakes or areas for improvement.
If there is lots to improve, don't hesitate to give low scores.
%s
Return the analysis as a JSON object with this exact shape, and nothing else:
{
  "overallRating": number (0-100),
  "ats": {"score": number (0-100), "suggestions": [{"kind": "good" | "improve", "text": string}]},
  "toneAndStyle": {"score": number (0-100), "tips": [{"kind": "good" | "improve", "text": string, "explanation": string}]},
  "content": {"score": number (0-100), "tips": [{"kind": "good" | "improve", "text": string, "explanation": string}]},
  "structure": {"score": number (0-100), "tips": [{"kind": "good" | "improve", "text": string, "explanation": string}]},
  "skills": {"score": number (0-100), "tips": [{"kind": "good" | "improve", "text": string, "explanation": string}]}
}
Do not wrap the JSON in backticks or commentary.`

// Instructions composes the review instruction string from the job context.
// Blank fields are simply omitted rather than sent as empty labels.
func Instructions(companyName, jobTitle, jobDescription string) string {
	var context strings.Builder
	if s := strings.TrimSpace(companyName); s != "" {
		fmt.Fprintf(&context, "The candidate is applying at: %s\n", s)
	}
	if s := strings.TrimSpace(jobTitle); s != "" {
		fmt.Fprintf(&context, "The job title is: %s\n", s)
	}
	if s := strings.TrimSpace(jobDescription); s != "" {
		fmt.Fprintf(&context, "The job description is:\n%s\n", s)
	}
	if context.Len() == 0 {
		context.WriteString("No job context was provided; rate the resume on general quality.\n")
	}
	return fmt.Sprintf(instructionTemplate, strings.TrimRight(context.String(), "\n"))
}
