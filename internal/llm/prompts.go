package llm

// subquestionPrompt asks for the explicit question behind an implicit constraint
const subquestionPrompt = `Generate an explicit question and answer type for the implicit part of the temporal input question.
The answer type is either "date" or "time interval".

Input: what position did djuanda kartawidjaja take after he was replaced by sukarno
Output: when djuanda kartawidjaja replaced by sukarno||date

Input: american naval leader during the world war 2
Output: when world war 2||time interval

Input: who became president after harding died
Output: when harding died||date

Input: who did luis suarez play for before liverpool
Output: when luis suarez play for liverpool||time interval

Input: Which album was released by the Smashing Pumpkins after Mike Byrne joined the band
Output: When Mike Byrne joined Smashing Pumpkins||time interval

Input: %s
Output:`

// formPrompt asks for the structured temporal form of a question
const formPrompt = `Decompose the temporal question into: entity || relation || answer type || temporal signal || category.
The temporal signal is one of OVERLAP, BEFORE, AFTER, START, FINISH or No signal.
The category is implicit when the time constraint is another event, otherwise non-implicit.

Input: who was the us president during world war 2
Output: world war 2 || us president || human || OVERLAP || implicit

Input: what team did luis suarez play for in 2010
Output: luis suarez || play for team || sports team || OVERLAP || non-implicit

Input: when did barack obama become president
Output: barack obama || become president || date || START || non-implicit

Input: who became president after harding died
Output: harding || became president || human || AFTER || implicit

Input: %s
Output:`
