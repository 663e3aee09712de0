package emotion

import "github.com/easeaico/companion-chat/internal/types"

type keywordRule struct {
	emotion  types.EmotionType
	keywords []string
}

// keywordRules is scanned in order; the first rule with a matching keyword wins.
var keywordRules = []keywordRule{
	{types.EmotionJoy, []string{"开心", "高兴", "快乐", "喜悦", "哈哈", "😊", "😄", "happy", "glad", "joyful", "haha"}},
	{types.EmotionSadness, []string{"难过", "伤心", "悲伤", "哭", "😢", "😭", "sad", "upset", "crying", "heartbroken"}},
	{types.EmotionAnger, []string{"生气", "愤怒", "气愤", "讨厌", "😡", "😠", "angry", "furious", "annoyed"}},
	{types.EmotionFear, []string{"害怕", "恐惧", "担心", "紧张", "😨", "😰", "afraid", "scared", "worried", "nervous"}},
	{types.EmotionSurprise, []string{"惊讶", "意外", "震惊", "😲", "😮", "surprised", "shocked", "unexpected"}},
	{types.EmotionLove, []string{"爱", "喜欢", "爱你", "亲爱的", "❤️", "💕", "love", "darling", "adore"}},
	{types.EmotionExcitement, []string{"兴奋", "激动", "太棒了", "amazing", "😍", "excited", "thrilled", "awesome"}},
	{types.EmotionCalm, []string{"平静", "安静", "放松", "冷静", "😌", "calm", "relaxed", "peaceful"}},
}
