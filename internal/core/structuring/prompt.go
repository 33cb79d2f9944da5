package structuring

// SystemPrompt は判決文から構造化情報を抽出させるための指示
const SystemPrompt = `Extract structured legal information.

Return STRICT JSON with:
case_title
key_facts
legal_issues
decision
reasoning_summary`
