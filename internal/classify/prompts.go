package classify

import (
	"fmt"
	"strings"

	"github.com/21draw/ugc-finder/internal/models"
)

// Prompt versions, bumped whenever the wording changes in a way that affects
// scoring. Audit logs carry the version so old scores stay comparable.
const (
	DiscoveryPromptVersion = 1
	RescorePromptVersion   = 2
	OutreachPromptVersion  = 4
	VideoPromptVersion     = 1
)

// formatNum renders follower counts the way they appear on the platform.
func formatNum(n int) string {
	if n >= 1000000 {
		return fmt.Sprintf("%.1fM", float64(n)/1000000)
	}
	if n >= 1000 {
		return fmt.Sprintf("%.1fK", float64(n)/1000)
	}
	return fmt.Sprintf("%d", n)
}

// cleanText flattens newlines and drops non-BMP runes (mostly emoji) that
// bloat prompts without informing the model.
func cleanText(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r == '\n' || r == '\r':
			b.WriteByte(' ')
		case r > 0xFFFF:
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func reelSection(p *models.Profile) string {
	return fmt.Sprintf(`TOP REELS:
Reel 1: %s
- Likes: %d | Comments: %d
- Caption: %s

Reel 2: %s
- Likes: %d | Comments: %d
- Caption: %s

Reel 3: %s
- Likes: %d | Comments: %d
- Caption: %s`,
		orNone(p.Reel1URL), p.Reel1Likes, p.Reel1Comments, cleanText(p.Reel1Caption),
		orNone(p.Reel2URL), p.Reel2Likes, p.Reel2Comments, cleanText(p.Reel2Caption),
		orNone(p.Reel3URL), p.Reel3Likes, p.Reel3Comments, cleanText(p.Reel3Caption))
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}

// BuildDiscoveryPrompt scores a freshly recovered profile for UGC fit.
func BuildDiscoveryPrompt(p *models.Profile) string {
	return fmt.Sprintf(`Evaluate this Instagram creator for potential UGC partnership with 21Draw, an online art education platform.

PROFILE DATA:
Username: %s
Followers: %d
Engagement Rate: %g%%
Avg Likes: %d
Avg Comments: %d
Bio: %s
Verified: %t
Business Category: %s
Total Reels Found: %d

%s

EVALUATION CRITERIA:
- Niche relevance to art education (drawing, painting, sculpting, digital art, art tutorials)
- Engagement quality (likes, comments relative to followers)
- Content style fit for educational art platform
- Follower count (accounts with 5k+ followers in art niche are valuable)
- Even accounts with lower engagement rates should be COLLABORATE if they have strong art content and decent following

Recommendation options:
- COLLABORATE: Strong fit, good metrics, art-relevant content
- REVIEW: Promising but needs manual review
- PASS: Not a good fit for 21Draw
- REJECT: Clearly unsuitable (spam, no art content, very low following)

Respond with JSON only, no other text:
{"niche_relevance": 1-10, "profile_score": 1-10, "recommendation": "COLLABORATE/REVIEW/PASS/REJECT", "reasoning": "your explanation here"}`,
		p.Username, p.Followers, p.EngagementRate, p.AvgLikes, p.AvgComments,
		cleanText(p.Bio), p.Verified, orNone(p.BusinessCategory), p.TotalReelsFound,
		reelSection(p))
}

// BuildRescorePrompt re-evaluates an already-scored profile, adding the course
// teacher dimension the first scoring pass did not have.
func BuildRescorePrompt(p *models.Profile) string {
	return fmt.Sprintf(`Evaluate this Instagram creator for 21Draw, an online art education platform with 2M+ students.

PROFILE DATA:
Username: %s
Followers: %d
Engagement Rate: %g%%
Avg Likes: %d
Avg Comments: %d
Bio: %s
Verified: %t
Total Reels Found: %d

%s

EVALUATION CRITERIA:

UGC CREATOR FIT:
- Niche relevance to art education (drawing, painting, sculpting, digital art, art tutorials)
- Engagement quality (likes, comments relative to followers)
- Content style fit for educational art platform
- Follower count (accounts with 5k+ followers in art niche are valuable)
- Even accounts with lower engagement rates should score well if they have strong art content and decent following

COURSE TEACHER FIT:
- Could this person teach a full online course on their art specialty?
- Professional industry experience mentioned in bio (studio work, freelance clients, publications)
- Published work (books, comics, games, exhibitions)
- Teaching signals in captions (how to, tutorial, step by step, learn, process)
- YouTube channel, Skillshare, or course platform links in bio
- High production quality in reels
- Art specialties that match 21Draw catalog: character design, concept art, digital illustration, comic art, traditional painting, anatomy, figure drawing
- Higher follower counts (50K+) are typical for course teacher candidates but not required

PROFILE TYPE SUGGESTION:
Based on your scores, suggest which type fits best:
- UGC_CREATOR: Strong UGC fit (profile_score >= 6) but lower teaching fit (course_teacher_score < 6)
- COURSE_TEACHER: Strong teaching fit (course_teacher_score >= 6) but lower UGC fit (profile_score < 6)
- BOTH: Strong fit for both (both scores >= 6)
- If both scores are low, still categorize based on which is higher

Recommendation options:
- COLLABORATE: Strong fit for UGC, teaching, or both
- REVIEW: Promising but needs manual review
- PASS: Not a good fit for 21Draw
- REJECT: Clearly unsuitable (spam, no art content, very low following)

Respond with JSON only, no other text:
{"niche_relevance": 1-10, "profile_score": 1-10, "course_teacher_score": 1-10, "suggested_type": "UGC_CREATOR/COURSE_TEACHER/BOTH", "recommendation": "COLLABORATE/REVIEW/PASS/REJECT", "reasoning": "your explanation covering both UGC and teaching potential"}`,
		p.Username, p.Followers, p.EngagementRate, p.AvgLikes, p.AvgComments,
		cleanText(p.Bio), p.Verified, p.TotalReelsFound,
		reelSection(p))
}

func audienceContext(followers int) string {
	if followers < 20000 {
		return fmt.Sprintf("AUDIENCE CONTEXT: Micro-creator (%s followers). Keep it casual and short.", formatNum(followers))
	}
	if followers < 100000 {
		return fmt.Sprintf("AUDIENCE CONTEXT: Mid-tier creator (%s followers). Be specific about the paid opportunity. They get some brand DMs so stand out by being direct.", formatNum(followers))
	}
	return fmt.Sprintf("AUDIENCE CONTEXT: Large creator (%s followers). Be brief and direct, no fluff. They get tons of brand pitches.", formatNum(followers))
}

func languageContext(p *models.Profile) string {
	if p.OverallUGCScore != nil && p.SpeaksEnglish != nil && !*p.SpeaksEnglish {
		return `LANGUAGE NOTE: This creator likely does NOT speak English based on video analysis. Write the DM in simple, clear English. Avoid idioms and complex phrasing. Add at the end: "(We can also communicate in your preferred language if needed.)" Set language_note to "non-english speaker" in your response.`
	}
	return ""
}

func videoAnalysisContext(p *models.Profile) string {
	if p.OverallUGCScore == nil {
		return ""
	}
	return fmt.Sprintf(`
Gemini Video Analysis:
- Speaks English: %s
- Talks in Videos: %s
- Voice Potential: %d/10
- Teaching Potential: %d/10
- Brand Fit: %d/10
- Production Quality: %d/10
- Overall UGC Score: %d/10
- Video Recommendation: %s`,
		yesNo(p.SpeaksEnglish), yesNo(p.TalksInVideos),
		intOrZero(p.VoicePotential), intOrZero(p.TeachingPotential),
		intOrZero(p.BrandFit), intOrZero(p.ProductionQuality),
		intOrZero(p.OverallUGCScore), strOrEmpty(p.VideoRecommendation))
}

func yesNo(b *bool) string {
	if b != nil && *b {
		return "Yes"
	}
	return "No"
}

func intOrZero(n *int) int {
	if n == nil {
		return 0
	}
	return *n
}

func strOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func reelContentSection(p *models.Profile) string {
	cap1 := truncate(cleanText(p.Reel1Caption), 200)
	cap2 := truncate(cleanText(p.Reel2Caption), 200)
	cap3 := truncate(cleanText(p.Reel3Caption), 200)
	if cap1 == "" && cap2 == "" && cap3 == "" {
		return ""
	}
	var b strings.Builder
	b.WriteString("\nTHEIR CONTENT (use this to personalize your message, reference specific work):")
	if cap1 != "" {
		fmt.Fprintf(&b, "\n- Reel 1: %q (%d likes)", cap1, p.Reel1Likes)
	}
	if cap2 != "" {
		fmt.Fprintf(&b, "\n- Reel 2: %q (%d likes)", cap2, p.Reel2Likes)
	}
	if cap3 != "" {
		fmt.Fprintf(&b, "\n- Reel 3: %q (%d likes)", cap3, p.Reel3Likes)
	}
	return b.String()
}

// BuildOutreachPrompt generates personalized outreach messages for an approved
// profile. The message set depends on the effective profile type: UGC only,
// teacher only, or both.
func BuildOutreachPrompt(p *models.Profile) string {
	profileType := p.EffectiveType()
	isTeacher := profileType == models.TypeCourseTeacher || profileType == models.TypeBoth
	isUGC := profileType == models.TypeUGCCreator || profileType == models.TypeBoth

	var roleContext, tierDefs, messageInstructions, jsonFormat, examples string

	switch {
	case isTeacher && isUGC:
		roleContext = "This creator is flagged as BOTH a UGC Creator AND a potential Course Teacher for 21Draw."
		tierDefs = `   - TIER_1: Perfect fit for BOTH roles. Strong art educator, high scores, English speaker, video creator
   - TIER_2: Strong for one role, decent for the other
   - TIER_3: Approved but better suited for only one role`
		messageInstructions = `Write TWO sets of outreach messages:
a) UGC DM + email — about creating paid promotional content for 21Draw
b) Teaching DM + email — about teaching an online course for 21Draw's 2M+ students. This is a significant paid opportunity with upfront payment + ongoing royalties. 21Draw handles all production.`
		jsonFormat = `{
  "contact_email": "email@example.com or null",
  "contact_method": "EMAIL/DM/BOTH",
  "priority_tier": "TIER_1/TIER_2/TIER_3",
  "dm_message": "UGC DM text",
  "email_subject": "UGC email subject",
  "email_body": "UGC email body",
  "teacher_dm_message": "Teaching DM text",
  "teacher_email_subject": "Teaching email subject",
  "teacher_email_body": "Teaching email body",
  "language_note": "non-english speaker or null",
  "personalization_hook": "the specific thing you referenced about their work"
}`
		examples = `
EXAMPLE (BOTH, UGC + Teacher):
{
  "dm_message": "Saw your gouache landscapes and the way you explain color mixing is so clear. I'm Noras at 21Draw, we're an online art school with 2M students. We pay artists to create content for us and thought you'd be perfect. Can I tell you more?",
  "email_subject": "Paid content collab with 21Draw",
  "email_body": "Hi,\n\nI'm Noras from 21Draw. Found your work on Instagram and love your painting tutorials.\n\nWe're an online art school (2M+ students, courses by Disney/Marvel pros) and we're looking for artists to create paid promo content. Your teaching style and audience would be a great fit.\n\nHappy to share more details if you're interested.\n\nNoras\n21Draw",
  "teacher_dm_message": "Your gouache tutorials are seriously good. I'm at 21Draw, we have 2M+ students taking courses from industry pros. We're looking for artists to teach paid courses on our platform, we handle all the production. Think it could be a good fit for you. Open to chatting?",
  "teacher_email_subject": "Teaching opportunity at 21Draw",
  "teacher_email_body": "Hi,\n\nI'm Noras from 21Draw. We're an online art education platform with 2M+ students and instructors from Disney, Marvel, and DreamWorks.\n\nWe're looking for talented artists to teach courses. You get paid upfront plus ongoing royalties, and we handle all filming and production. Your painting tutorials show exactly the kind of teaching ability our students need.\n\nWould love to tell you more.\n\nNoras\n21Draw"
}`
	case isTeacher:
		roleContext = "This creator is flagged as a potential Course Teacher for 21Draw."
		tierDefs = `   - TIER_1: Professional artist with clear teaching ability, strong portfolio, English speaker
   - TIER_2: Good artist but teaching ability uncertain (no speaking in videos, unclear language)
   - TIER_3: Interesting artist but may not be ready to teach a full course`
		messageInstructions = `Write outreach about teaching an online art course for 21Draw's 2M+ students.
Key selling points:
- Significant upfront payment + ongoing royalties from course sales
- 21Draw handles ALL production (filming, editing, platform hosting)
- Join a roster of Disney, Marvel, and DreamWorks alumni
- Courses cover: character design, concept art, digital illustration, comic art, traditional painting, anatomy, figure drawing
- Mention their specific art expertise and how it fits`
		jsonFormat = singleRoleJSONFormat
		examples = `
EXAMPLE (Course Teacher):
{
  "dm_message": "Been following your storyboard work for a bit, your process breakdowns are really helpful. I'm at 21Draw, we're looking for artists to teach paid courses on our platform. We handle all the production side, you just teach. Worth a quick chat?",
  "email_subject": "Teaching opportunity at 21Draw",
  "email_body": "Hi,\n\nI'm Noras from 21Draw. We're an online art school with 2M+ students, courses taught by pros from Disney, Marvel, DreamWorks.\n\nWe're looking for artists to teach their own courses. You get upfront payment plus ongoing royalties from sales. We handle filming, editing, everything.\n\nYour storyboard expertise would be a great addition to our course lineup. Happy to share more details.\n\nNoras\n21Draw"
}`
	default:
		roleContext = "This creator is flagged as a UGC Creator for 21Draw."
		tierDefs = `   - TIER_1: Strong art educator/creator, high scores, speaks English, creates video content. Perfect UGC fit.
   - TIER_2: Good creator but missing something (doesn't talk in videos, lower engagement, or unclear language)
   - TIER_3: Approved but lower potential for video UGC specifically`
		messageInstructions = `Write outreach about creating paid promotional content for 21Draw.
Key points:
- This is PAID work, not a free product exchange
- They would create content featuring 21Draw courses/platform
- 21Draw is a premium art education platform (2M+ students, Disney/Marvel alumni instructors)
- Reference something specific about their art or content style`
		jsonFormat = singleRoleJSONFormat
		examples = `
EXAMPLE (UGC Creator):
{
  "dm_message": "Saw your character design breakdowns and they're so clean. I work at 21Draw (online art school, 2M+ students) and we're looking for artists to do paid content for us. Thought you'd be a good fit. Can I send you some details?",
  "email_subject": "Paid content collab with 21Draw",
  "email_body": "Hi,\n\nI'm Noras from 21Draw. Found your character design work on Instagram and it's great.\n\nWe're an online art school (2M+ students, courses by Disney/Marvel pros) and we pay artists to create promo content for our platform. Your style and audience would be a good match.\n\nHappy to share details if you're interested.\n\nNoras\n21Draw"
}`
	}

	return fmt.Sprintf(`You are writing outreach messages for 21Draw, an online art education platform. %s

ABOUT 21DRAW:
- 2M+ students worldwide
- 50+ courses taught by industry professionals (Disney, Marvel, DreamWorks alumni)
- Course teachers receive upfront payment + ongoing royalties from course sales
- 21Draw handles all production (filming, editing, hosting)
- For UGC creators: paid content partnerships (not free product exchanges)

CREATOR PROFILE:
Username: %s
Followers: %s
Engagement Rate: %g%%
Bio: %s
Profile Score: %d/10
Course Teacher Score: %d/10
Recommendation: %s
Reasoning: %s
Profile Type: %s
%s
%s

%s
%s

TASKS:
1. Extract any email address from the bio (return null if none found)
2. Determine contact method: EMAIL (if email found), DM (if no email), BOTH (if email found and they seem open to DMs)
3. Assign priority tier:
%s
4. %s

DM MESSAGE RULES:
- 2-3 short sentences max. Keep it under 400 characters.
- NEVER use em-dashes. Use periods or commas instead.
- BANNED PHRASES (do NOT use any of these, even rephrased): "incredible", "stunning", "really stood out", "caught my eye", "caught my attention", "I'd love to", "fantastic", "exceptional", "impressed", "stood out to me", "drew me in"
- One specific thing you noticed about their work, stated simply. Don't stack compliments.
- Don't cram everything into the first message. Just open the door.
- Write like you're texting someone about their work, not writing marketing copy.
- Vary sentence openings. Not every message should start with "Your [noun]..."
- Vary the closing. Not always "Would you be open to hearing more?" Try: "Can I send you details?", "Worth a chat?", "Open to chatting?", "Interested?"
- Zero emojis.
- Sign as just "Noras" in DMs, not "Noras from 21Draw".
- Mention 21Draw and what it is in one short phrase, like "21Draw (online art school, 2M+ students)" or "I'm at 21Draw, we do online art courses".
- Keep the tone casual. Short sentences. No corporate language.

EMAIL RULES:
- Subject: 5-8 words, direct, no buzzwords
- Body: 3-4 short sentences, get to the point fast
- Don't repeat the DM with fancier words, make it a bit different
- No em-dashes in emails either
- Sign off as just "Noras\n21Draw"
%s

Respond with JSON only, no other text:
%s`,
		roleContext,
		p.Username, formatNum(p.Followers), p.EngagementRate, cleanText(p.Bio),
		p.ProfileScore, intOrZero(p.CourseTeacherScore), p.Recommendation,
		orNA(p.Reasoning), profileType,
		videoAnalysisContext(p), reelContentSection(p),
		audienceContext(p.Followers), languageContext(p),
		tierDefs, messageInstructions, examples, jsonFormat)
}

const singleRoleJSONFormat = `{
  "contact_email": "email@example.com or null",
  "contact_method": "EMAIL/DM/BOTH",
  "priority_tier": "TIER_1/TIER_2/TIER_3",
  "dm_message": "the DM text",
  "email_subject": "subject line",
  "email_body": "the email body",
  "language_note": "non-english speaker or null",
  "personalization_hook": "the specific thing you referenced about their work"
}`

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

// BuildVideoPrompt asks the video model to watch the uploaded reels and score
// the creator, with heavy emphasis on audio accuracy. Most art reels have only
// music; the model must not assume narration.
func BuildVideoPrompt(p *models.Profile, videoCount int) string {
	return fmt.Sprintf(`You are evaluating Instagram creators for UGC partnerships with 21Draw, an online art education platform.

CREATOR INFO:
- Username: %s
- Followers: %d
- Bio: %s

REEL 1 CAPTION: %s
REEL 2 CAPTION: %s
REEL 3 CAPTION: %s

I have provided %d video(s) for you to analyze.

WATCH AND LISTEN TO ALL VIDEOS CAREFULLY. Evaluate the creator based on ALL videos:

1. **talks_in_videos** (true/false): Does the creator SPEAK with their voice in ANY of the videos?
   - TRUE = creator talks, explains, or narrates with spoken words in at least one video
   - FALSE = no speech in any video, only music, sound effects, or silence
   - Background music does NOT count as talking
   - Text overlays do NOT count as talking
   - Songs with lyrics do NOT count as the creator talking

2. **audio_description**: What sounds do you HEAR in each video? Be specific. Format:
   - Reel 1: [describe audio]
   - Reel 2: [describe audio] (if provided)
   - Reel 3: [describe audio] (if provided)

3. **speech_quote**: If the creator speaks in ANY video, provide ONE short quote (5-10 words) of what they actually said. If no speech in any video, write "N/A".

4. **speaks_english** (true/false): If they speak, is it in English? (false if no speech)

5. **videos_with_speech**: How many of the videos have the creator speaking? (0, 1, 2, or 3)

6. **voice_potential** (0-10): Based on their content style, how likely could they do voiceover work?
7. **teaching_potential** (0-10): Could they teach art concepts?
8. **content_quality** (0-10): Production quality and visual appeal
9. **brand_fit** (0-10): Fit with art education brand
10. **overall_ugc_score** (0-10): Overall UGC partnership potential

11. **video_summary**: Briefly describe what happens across all videos
12. **ugc_reasoning**: Why would they be a good/bad UGC partner?
13. **recommendation**: STRONG_YES / YES / MAYBE / NO
14. **next_steps**: What to verify before outreach?

IMPORTANT: Be accurate about audio. Do not assume speech exists just because it's a tutorial. Many art videos have only music.

CRITICAL: You MUST respond with ONLY a JSON object. No text before or after. No markdown. No explanation. Do not use newline characters inside string values, use spaces instead. Example format:
{"talks_in_videos": false, "audio_description": "Reel 1: background music. Reel 2: silence.", "speech_quote": "N/A", "speaks_english": false, "videos_with_speech": 0, "voice_potential": 0, "teaching_potential": 0, "content_quality": 0, "brand_fit": 0, "overall_ugc_score": 0, "video_summary": "", "ugc_reasoning": "", "recommendation": "", "next_steps": ""}`,
		p.Username, p.Followers, cleanText(p.Bio),
		orNA(cleanText(p.Reel1Caption)), orNA(cleanText(p.Reel2Caption)), orNA(cleanText(p.Reel3Caption)),
		videoCount)
}

// JSONReminder is appended to the video prompt on retry after a malformed
// response.
const JSONReminder = "\n\nREMINDER: Output ONLY valid JSON. No text, no markdown, no explanation. Keep all string values on a single line with no newline characters."
