package jobs

import (
	"fmt"
	"strings"

	"github.com/tarotlab/tarot-reader/pkg/models"
)

// DefaultQuestion is substituted when the submitter asks nothing specific.
const DefaultQuestion = "无特定问题"

const systemPrompt = "你是一位专业的塔罗牌占卜师，请根据用户的问题和抽到的牌面进行综合解读。"

// buildMessages assembles the chat prompt: a fixed system instruction plus one
// user message interpolating the question and the drawn cards in draw order.
func buildMessages(question string, cards []models.Card) []models.ChatMessage {
	lines := make([]string, len(cards))
	for i, c := range cards {
		orientation := "正位"
		if c.Reversed {
			orientation = "逆位"
		}
		lines[i] = fmt.Sprintf("%s（%s） - %s", c.Name, orientation, c.Description)
	}

	user := fmt.Sprintf("我的问题：%s\n\n抽到的牌：\n%s", question, strings.Join(lines, "\n"))

	return []models.ChatMessage{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: user},
	}
}
