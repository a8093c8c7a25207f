package cvreview

import (
	"fmt"
	"strings"
)

const systemPrompt = "You are a CV reviewer. Your role is to critically evaluate how well a CV matches a " +
	"specific job specification and the company culture and requirements. You provide detailed feedback " +
	"and an alignment score out of 100, explaining the reasons for the score. Additionally, You offer " +
	"suggestions on how to amend the CV based on the feedback to better align it with the job requirements. " +
	"Finally you provide a rewritten professional summary to better align to the role. Your goal is to help " +
	"users refine their CVs to increase their chances of landing their desired job."

const userPromptTemplate = `Please take the CV and job specification that I have provided and provide an alignment score out of 100, explaining the reasons for the score. Additionally, offer suggestions on how to amend the CV based on the feedback to better align it with the job requirements. Also, provide a rewritten professional summary to better align to the role. Any output needs to be written in British English.
CV:
%s

Job Specification:
%s

Generated CV:
`

// BuildPrompt embeds the CV and job specification in the review instructions.
func BuildPrompt(cv, jobSpec string) string {
	return fmt.Sprintf(userPromptTemplate, strings.TrimSpace(cv), strings.TrimSpace(jobSpec))
}
