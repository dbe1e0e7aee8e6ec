package gate

import "regexp"

var (
	memoryPattern = regexp.MustCompile(`(?i)^\s*(call me|my name is|i am called|remember that i am)\s+([a-zA-Z][a-zA-Z .'-]{0,40})\s*[.!]?\s*$`)

	schemaInquiryPattern = regexp.MustCompile(`(?i)\b(what tables|list (all )?(the )?tables|which tables|what data do you have|what sheets|what is (in )?sheet \d+|show (me )?(the )?tables|describe (the )?table|what columns|available (tables|data|sheets))\b`)

	sheetNumberPattern = regexp.MustCompile(`sheet\s+(\d+)`)

	dateContextPattern = regexp.MustCompile(`(?i)^\s*(today is|today's date is|assume today is|the date is|current date is)\s+(.+?)\s*[.!]?\s*$`)
)

// smalltalkRules is the deterministic reply library. Order matters: more
// specific categories sit above catch-alls.
var smalltalkRules = []rule{
	{"mic_check", regexp.MustCompile(`^(can you hear me|are you there|hello\?+|testing|test test|mic check)\W*$`),
		"I'm here and listening. Ask me about your data."},
	{"greeting", regexp.MustCompile(`^(hi+|hii+|hello|hey|hai|vanakkam|வணக்கம்|good (morning|afternoon|evening))\W*$`),
		"Hello! Ask me anything about your tables, like \"total sales in September\"."},
	{"farewell", regexp.MustCompile(`^(bye|goodbye|see you|good night|poitu varen|ta ta)\W*$`),
		"Goodbye! Come back whenever you have more questions about your data."},
	{"thanks", regexp.MustCompile(`^(thanks?( you)?( so much| a lot)?|thank u|nandri|நன்றி)\W*$`),
		"You're welcome! Anything else you'd like to know?"},
	{"capability", regexp.MustCompile(`(what can you do|how (can|do) you help|what do you do|your capabilities|^help( me)?\W*$)`),
		"I answer questions about your spreadsheet data: totals, comparisons, trends, rankings, and projections. Try \"compare sales between August and September\"."},
	{"identity", regexp.MustCompile(`(who are you|what are you|are you a (bot|robot|human)|your name)`),
		"I'm your data assistant. I read your spreadsheets and answer questions about them."},
	{"how_are_you", regexp.MustCompile(`^(how are you|how('s| is) it going|what('s| is) up|eppadi irukkinga)\W*$`),
		"Doing well and ready to crunch numbers. What would you like to know?"},
	{"affirmation", regexp.MustCompile(`^(ok(ay)?|yes|yeah|yep|sure|fine|got it|cool|nice|great|super)\W*$`),
		"Great. What would you like to look at next?"},
	{"negation", regexp.MustCompile(`^(no|nope|nothing|not now|never mind|leave it)\W*$`),
		"No problem. I'm here when you need me."},
	{"joke", regexp.MustCompile(`(tell me a joke|make me laugh|say something funny)`),
		"I only know data jokes, and the sample size is too small. Ask me about your numbers instead!"},
	{"weather", regexp.MustCompile(`\b(weather|temperature outside|is it raining)\b`),
		"I can't see the weather, but I can tell you which month's sales were hottest."},
	{"time_now", regexp.MustCompile(`^(what time is it|current time)\W*$`),
		"I don't track the clock, but I can break your data down by day, month, or quarter."},
	{"news", regexp.MustCompile(`\b(latest news|news today|headlines)\b`),
		"I don't follow the news. I only know the data you've loaded."},
	{"sports", regexp.MustCompile(`\b(cricket score|football|match score|ipl)\b`),
		"I don't follow sports scores, only your business scores. Ask me about sales or counts."},
	{"movies", regexp.MustCompile(`\b(movie|film recommendation|what should i watch)\b`),
		"No movie picks from me, but I can show you your top products instead."},
	{"food", regexp.MustCompile(`\b(recipe|what should i eat|order food)\b`),
		"I can't help with food, but I can tell you which category sells best."},
	{"personal", regexp.MustCompile(`(do you (love|like) me|are you married|where do you live)`),
		"I keep things professional: spreadsheets only. What would you like to know about yours?"},
	{"math_trivia", regexp.MustCompile(`^(what is \d+\s*[-+*/]\s*\d+)\W*$`),
		"I do arithmetic on your tables, not on riddles. Ask me to total or compare a column."},
	{"insult", regexp.MustCompile(`\b(you are (stupid|useless|dumb)|stupid bot)\b`),
		"Sorry I missed the mark. Try rephrasing your question, for example \"total sales in September\"."},
	{"gibberish", regexp.MustCompile(`^[^aeiou0-9\s\p{Tamil}]{4,}$`),
		"I couldn't make sense of that. Could you rephrase your question about the data?"},
}
